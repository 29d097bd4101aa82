package archive

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fsdedup/fsbench/chart"
	"github.com/pkg/errors"
)

// DiffKind classifies a difference between two archives.
type DiffKind int

const (
	OnlyInA DiffKind = iota
	OnlyInB
	ValueChanged
)

func (k DiffKind) String() string {
	switch k {
	case OnlyInA:
		return "only in A"
	case OnlyInB:
		return "only in B"
	case ValueChanged:
		return "value changed"
	}
	return fmt.Sprintf("DiffKind(%d)", int(k))
}

// Difference is one changed chart, or one changed bar of a chart present in both.
type Difference struct {
	Kind     DiffKind
	Key      string // chart key
	Series   string
	Category string
	A, B     float64
}

// Change returns the relative change from A to B.
func (d Difference) Change() float64 {
	if d.A == 0 {
		return 0
	}
	return (d.B - d.A) / d.A
}

// Diff walks both archives in key order and reports every chart present in only
// one of them and every bar whose value differs.
func Diff(a, b *Archive, fn func(Difference)) error {
	ia := a.db.NewIterator(nil, nil)
	ib := b.db.NewIterator(nil, nil)
	defer ia.Release()
	defer ib.Release()

	oka, okb := ia.Next(), ib.Next()
	for oka && okb {
		ka, kb := ia.Key(), ib.Key()
		switch bytes.Compare(ka, kb) {
		case 1:
			// ka > kb, ia is ahead
			fn(Difference{Kind: OnlyInB, Key: string(kb)})
			okb = ib.Next()
		case -1:
			fn(Difference{Kind: OnlyInA, Key: string(ka)})
			oka = ia.Next()
		case 0:
			if !bytes.Equal(ia.Value(), ib.Value()) {
				if err := diffCharts(string(ka), ia.Value(), ib.Value(), fn); err != nil {
					return err
				}
			}
			oka, okb = ia.Next(), ib.Next()
		}
	}
	for ; oka; oka = ia.Next() {
		fn(Difference{Kind: OnlyInA, Key: string(ia.Key())})
	}
	for ; okb; okb = ib.Next() {
		fn(Difference{Kind: OnlyInB, Key: string(ib.Key())})
	}
	if err := ia.Error(); err != nil {
		return errors.Wrap(err, "archive A")
	}
	return errors.Wrap(ib.Error(), "archive B")
}

func diffCharts(key string, encA, encB []byte, fn func(Difference)) error {
	var ca, cb chart.Chart
	if err := json.Unmarshal(encA, &ca); err != nil {
		return errors.Wrapf(err, "corrupt chart %s in A", key)
	}
	if err := json.Unmarshal(encB, &cb); err != nil {
		return errors.Wrapf(err, "corrupt chart %s in B", key)
	}
	ida, va := bars(ca)
	idb, vb := bars(cb)
	for _, id := range ida {
		x, y := va[id], vb[id]
		if _, ok := vb[id]; !ok {
			fn(Difference{Kind: OnlyInA, Key: key, Series: id.series, Category: id.category, A: x})
		} else if x != y {
			fn(Difference{Kind: ValueChanged, Key: key, Series: id.series, Category: id.category, A: x, B: y})
		}
	}
	for _, id := range idb {
		if _, ok := va[id]; !ok {
			fn(Difference{Kind: OnlyInB, Key: key, Series: id.series, Category: id.category, B: vb[id]})
		}
	}
	return nil
}

type barID struct{ series, category string }

// bars indexes the values of c, returning the bar IDs in chart order.
func bars(c chart.Chart) ([]barID, map[barID]float64) {
	var (
		ids []barID
		m   = make(map[barID]float64)
	)
	for _, s := range c.Series {
		for i, v := range s.Values {
			if i >= len(c.Categories) {
				break
			}
			id := barID{s.Label, c.Categories[i]}
			if _, dup := m[id]; !dup {
				ids = append(ids, id)
			}
			m[id] = v
		}
	}
	return ids, m
}
