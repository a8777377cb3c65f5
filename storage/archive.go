package storage

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/certkeeper/certkeeper/storage/model"
)

const archiveVerificationPrefix = "verifications:"

// VerificationArchive keeps purged verification entries in a badger database
// so that the relational log can be trimmed without losing the audit trail.
type VerificationArchive struct {
	*badger.DB
	Path string
}

// OpenVerificationArchive opens (or creates) the archive at path
func OpenVerificationArchive(path string) (*VerificationArchive, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open verification archive")
	}
	return &VerificationArchive{
		DB:   db,
		Path: path,
	}, nil
}

// key orders entries by verification time; the id makes it unique
func (*VerificationArchive) key(entry model.CertificateVerification) []byte {
	return []byte(
		archiveVerificationPrefix + entry.VerificationTime.UTC().Format("20060102T150405.000000000") + ":" + entry.ID,
	)
}

// Archive writes the passed entries to the archive
func (a *VerificationArchive) Archive(entries []model.CertificateVerification) error {
	wb := a.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err = wb.Set(a.key(e), data); err != nil {
			return errors.Wrap(err, "failed to archive verification")
		}
	}
	return errors.Wrap(wb.Flush(), "failed to archive verifications")
}

// ReadIterator calls do for every archived entry in chronological order
func (a *VerificationArchive) ReadIterator(do func(entry model.CertificateVerification) error) error {
	return a.View(
		func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			prefix := []byte(archiveVerificationPrefix)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				err := it.Item().Value(
					func(v []byte) error {
						var entry model.CertificateVerification
						if err := json.Unmarshal(v, &entry); err != nil {
							return err
						}
						return do(entry)
					},
				)
				if err != nil {
					return err
				}
			}
			return nil
		},
	)
}

// Count returns the number of archived entries
func (a *VerificationArchive) Count() (n int, err error) {
	err = a.ReadIterator(
		func(model.CertificateVerification) error {
			n++
			return nil
		},
	)
	return
}
