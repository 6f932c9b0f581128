package consolidate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Ledger is the durable record of row fingerprints already delivered to the
// destination, keyed by source identity ("<spreadsheetID>_<tabID>"). It is the
// only persistent state of the system. A fingerprint enters the ledger through
// Commit and nowhere else, and Commit is only called after the rows behind
// those fingerprints have been written to the destination.
type Ledger struct {
	path    string
	entries map[string][]string
	members map[string]map[string]struct{}
}

// LoadLedger reads the ledger document from disk. A missing or unparsable
// file yields an empty ledger, never an error: losing the ledger means
// re-delivering rows, not losing them.
func LoadLedger(path string, log zerolog.Logger) *Ledger {
	l := &Ledger{
		path:    path,
		entries: make(map[string][]string),
		members: make(map[string]map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("failed to read ledger, starting fresh")
		}
		return l
	}
	if err := json.Unmarshal(data, &l.entries); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ledger is corrupt, starting fresh")
		l.entries = make(map[string][]string)
		return l
	}

	for key, fps := range l.entries {
		set := make(map[string]struct{}, len(fps))
		for _, fp := range fps {
			set[fp] = struct{}{}
		}
		l.members[key] = set
	}
	return l
}

// Contains reports whether a fingerprint has already been delivered for the
// given source.
func (l *Ledger) Contains(sourceKey, fp string) bool {
	_, ok := l.members[sourceKey][fp]
	return ok
}

// Sources returns how many source keys the ledger tracks.
func (l *Ledger) Sources() int {
	return len(l.entries)
}

// Commit merges the given per-source fingerprints into the ledger and
// persists it. The file is replaced atomically so a crash mid-save leaves the
// previous ledger intact. On save failure the durable state is unchanged and
// the affected rows will be rediscovered next cycle.
func (l *Ledger) Commit(pending map[string][]string) error {
	for key, fps := range pending {
		set := l.members[key]
		if set == nil {
			set = make(map[string]struct{})
			l.members[key] = set
		}
		for _, fp := range fps {
			if _, ok := set[fp]; ok {
				continue
			}
			set[fp] = struct{}{}
			l.entries[key] = append(l.entries[key], fp)
		}
	}
	return l.save()
}

func (l *Ledger) save() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create ledger temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close ledger temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}
