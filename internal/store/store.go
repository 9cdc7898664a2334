package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/timemachine/chatcore/internal/model/chat"
)

const (
	bucketName = "timechat"
	recordKey  = "conversations"
)

// Store persists the full conversation set as one JSON record in a BoltDB
// file. Every Save replaces the record wholesale; the in-memory registry
// stays authoritative for the session, the store is a crash-recovery copy.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the store file, creating parent directories as
// needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating store directory")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating bucket")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the given conversation set, replacing any previous record.
func (s *Store) Save(conversations map[string]*chat.Conversation) error {
	if conversations == nil {
		conversations = map[string]*chat.Conversation{}
	}
	encoded, err := json.Marshal(conversations)
	if err != nil {
		return errors.Wrap(err, "encoding conversations")
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(recordKey), encoded)
	})
	return errors.Wrap(err, "writing conversations")
}

// Load reads the persisted conversation set. An absent record yields a nil
// map and no error, signalling the caller to bootstrap defaults.
func (s *Store) Load() (map[string]*chat.Conversation, error) {
	var encoded []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucketName)).Get([]byte(recordKey)); v != nil {
			encoded = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading conversations")
	}
	if encoded == nil {
		return nil, nil
	}
	var conversations map[string]*chat.Conversation
	if err := json.Unmarshal(encoded, &conversations); err != nil {
		return nil, errors.Wrap(err, "decoding conversations")
	}
	return conversations, nil
}
