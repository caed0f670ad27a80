package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/markusressel/fancond/internal/ui"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketCalibration = "calibration"
)

var ErrNotFound = errors.New("no calibration record found")

// CalibrationRecord is everything learned about a fan during its last successful calibration
type CalibrationRecord struct {
	HwId      string      `json:"hwId"`
	Label     string      `json:"label"`
	PwmToRpm  map[int]int `json:"pwmToRpm"`
	RpmToPwm  map[int]int `json:"rpmToPwm"`
	StartPwm  int         `json:"startPwm"`
	Timestamp time.Time   `json:"timestamp"`
}

type Persistence interface {
	Init() error

	SaveCalibration(record CalibrationRecord) error
	// LoadCalibration returns ErrNotFound if no record exists for the given hardware id
	LoadCalibration(hwId string) (CalibrationRecord, error)
	DeleteCalibration(hwId string) error
}

type persistence struct {
	dbPath string
}

func NewPersistence(dbPath string) Persistence {
	p := &persistence{
		dbPath: dbPath,
	}
	return p
}

func (p persistence) Init() (err error) {
	// get parent path of dbPath
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		// create directory
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) openPersistence() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// SaveCalibration replaces the calibration record of the fan with the hardware id of the given record
func (p persistence) SaveCalibration(record CalibrationRecord) (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketCalibration))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		return b.Put([]byte(record.HwId), data)
	})
}

func (p persistence) LoadCalibration(hwId string) (record CalibrationRecord, err error) {
	db, err := p.openPersistence()
	if err != nil {
		return record, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketCalibration))
		if b == nil {
			return ErrNotFound
		}
		data := b.Get([]byte(hwId))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &record)
	})
	return record, err
}

func (p persistence) DeleteCalibration(hwId string) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketCalibration))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(hwId))
	})
}
