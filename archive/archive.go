// Package archive stores the data behind rendered charts in a LevelDB database,
// so the results of two report runs can be compared later.
package archive

import (
	"encoding/json"

	"github.com/fsdedup/fsbench/chart"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Archive is a chart store keyed by "<tool>/<name>".
type Archive struct {
	db *leveldb.DB
}

// Open opens or creates the archive in dir.
func Open(dir string) (*Archive, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open archive %s", dir)
	}
	return &Archive{db: db}, nil
}

// OpenReadOnly opens an existing archive without modifying it.
func OpenReadOnly(dir string) (*Archive, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{ReadOnly: true, ErrorIfMissing: true})
	if err != nil {
		return nil, errors.Wrapf(err, "can't open archive %s", dir)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Record stores c, replacing an earlier chart with the same key.
func (a *Archive) Record(c chart.Chart) error {
	enc, err := json.Marshal(&c)
	if err != nil {
		return err
	}
	return a.db.Put([]byte(c.Key()), enc, nil)
}

// Get loads the chart stored under key.
func (a *Archive) Get(key string) (chart.Chart, error) {
	var c chart.Chart
	enc, err := a.db.Get([]byte(key), nil)
	if err != nil {
		return c, errors.Wrap(err, key)
	}
	if err := json.Unmarshal(enc, &c); err != nil {
		return c, errors.Wrapf(err, "corrupt chart %s", key)
	}
	return c, nil
}

// Each calls fn for every chart whose key starts with prefix, in key order.
func (a *Archive) Each(prefix string, fn func(chart.Chart) error) error {
	it := a.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer it.Release()
	for it.Next() {
		var c chart.Chart
		if err := json.Unmarshal(it.Value(), &c); err != nil {
			return errors.Wrapf(err, "corrupt chart %s", it.Key())
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return it.Error()
}
