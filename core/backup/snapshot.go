package backup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core/history"
	"github.com/trezcool/schooldesk/core/settings"
	"github.com/trezcool/schooldesk/core/student"
)

// Backup file set
const (
	AdmissionsFile         = "admissions.json"
	HistoryFile            = "history.json"
	FeeMapFile             = "feeMap.json"
	PromotionDateFile      = "promotionDate.json"
	PrincipalSignatureFile = "principalSignature"
)

// Snapshot is a full copy of the stored data. It is also the document exchanged with the remote backend.
type Snapshot struct {
	Admissions         []student.Student `json:"admissions"`
	History            []history.Entry   `json:"history"`
	FeeMap             settings.FeeMap   `json:"feeMap"`
	PromotionDate      string            `json:"promotionDate"`
	PrincipalSignature []byte            `json:"principalSignature"`
}

// LatestTimestamp returns the most recent modification time found in the snapshot:
// history timestamps and fee payment dates. Zero when the snapshot holds neither.
func (s Snapshot) LatestTimestamp() time.Time {
	var latest time.Time
	for _, e := range s.History {
		if e.Timestamp.After(latest) {
			latest = e.Timestamp
		}
	}
	for _, st := range s.Admissions {
		for _, ev := range st.FeeHistory {
			if ev.Date.After(latest) {
				latest = ev.Date
			}
		}
	}
	return latest
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Admissions) == 0 && len(s.History) == 0 && len(s.FeeMap) == 0 &&
		s.PromotionDate == "" && len(s.PrincipalSignature) == 0
}

// WriteDir writes the backup file set into dir, creating it if needed.
func (s Snapshot) WriteDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating backup directory")
	}

	admissions := s.Admissions
	if admissions == nil {
		admissions = make([]student.Student, 0)
	}
	entries := s.History
	if entries == nil {
		entries = make([]history.Entry, 0)
	}
	fm := s.FeeMap
	if fm == nil {
		fm = make(settings.FeeMap)
	}

	files := []struct {
		name string
		v    interface{}
	}{
		{AdmissionsFile, admissions},
		{HistoryFile, entries},
		{FeeMapFile, fm},
		{PromotionDateFile, s.PromotionDate},
	}
	for _, f := range files {
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			return errors.Wrapf(err, "encoding %s", f.name)
		}
		if err = os.WriteFile(filepath.Join(dir, f.name), data, 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", f.name)
		}
	}

	sigPath := filepath.Join(dir, PrincipalSignatureFile)
	if len(s.PrincipalSignature) == 0 {
		if err := os.Remove(sigPath); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing %s", PrincipalSignatureFile)
		}
		return nil
	}
	if err := os.WriteFile(sigPath, s.PrincipalSignature, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", PrincipalSignatureFile)
	}
	return nil
}

// ReadDir reads a backup file set from dir. Missing files read as empty collections and default settings.
func ReadDir(dir string) (Snapshot, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "opening backup directory")
	}
	if !fi.IsDir() {
		return Snapshot{}, errors.Errorf("%s is not a directory", dir)
	}

	s := Snapshot{
		Admissions: make([]student.Student, 0),
		History:    make([]history.Entry, 0),
		FeeMap:     make(settings.FeeMap),
	}
	files := []struct {
		name string
		v    interface{}
	}{
		{AdmissionsFile, &s.Admissions},
		{HistoryFile, &s.History},
		{FeeMapFile, &s.FeeMap},
		{PromotionDateFile, &s.PromotionDate},
	}
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f.name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Snapshot{}, errors.Wrapf(err, "reading %s", f.name)
		}
		if err = json.Unmarshal(data, f.v); err != nil {
			return Snapshot{}, errors.Wrapf(err, "decoding %s", f.name)
		}
	}

	sig, err := os.ReadFile(filepath.Join(dir, PrincipalSignatureFile))
	if err != nil && !os.IsNotExist(err) {
		return Snapshot{}, errors.Wrapf(err, "reading %s", PrincipalSignatureFile)
	}
	if len(sig) > 0 {
		s.PrincipalSignature = sig
	}
	return s, nil
}
