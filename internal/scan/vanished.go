package scan

import (
	"database/sql"
	"fmt"
	"io/fs"

	"fpscan/internal/model"
)

// VanishedHandlerName is the name of the built-in vanished-file handler.
const VanishedHandlerName = "vanished"

// VanishedHandler keeps Fingerprint.VanishedAt in line with the filesystem.
// A fingerprint is vanished when it is out of scope, its file is gone, or the
// file is empty.
type VanishedHandler struct {
	scanner *ReverseScanner
}

// NewVanishedHandler is a HandlerFactory for the vanished-file handler.
func NewVanishedHandler(rs *ReverseScanner, _ Options) Handler {
	return &VanishedHandler{scanner: rs}
}

func (h *VanishedHandler) Name() string {
	return VanishedHandlerName
}

func (h *VanishedHandler) ProcessNext(fp *model.Fingerprint, info fs.FileInfo, inScope bool, _ Options) (bool, error) {
	vanished := !inScope || info == nil || info.Size() == 0
	if vanished == fp.IsVanished() {
		return false, nil
	}

	var vanishedAt sql.NullTime
	if vanished {
		ts, err := h.scanner.Store().CurrentVanishedTimestamp()
		if err != nil {
			return false, fmt.Errorf("getting vanished timestamp: %w", err)
		}
		vanishedAt = sql.NullTime{Time: ts, Valid: true}
	}

	patch := model.FingerprintPatch{UUID: fp.UUID, VanishedAt: &vanishedAt}
	if err := h.scanner.Store().UpdateFingerprint(patch); err != nil {
		return false, fmt.Errorf("updating vanished state: %w", err)
	}
	fp.VanishedAt = vanishedAt

	if vanished {
		h.scanner.Logger().Info("file vanished", "path", fp.LongFilename)
	} else {
		h.scanner.Logger().Info("file restored", "path", fp.LongFilename)
	}
	return true, nil
}

var _ HandlerFactory = NewVanishedHandler
