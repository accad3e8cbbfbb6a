// Package index turns raw iCalendar and vCard payloads into storage items,
// materializing the fields the query engine filters on.
package index

import (
	"bytes"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/cyp0633/caldavquery/server/recurrence"
	"github.com/cyp0633/caldavquery/server/storage"
	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"
)

// Indexer extracts item metadata from calendar and contact data.
type Indexer struct {
	engine *recurrence.Engine
}

// New creates an Indexer. A nil engine uses recurrence.NewEngine().
func New(engine *recurrence.Engine) *Indexer {
	if engine == nil {
		engine = recurrence.NewEngine()
	}
	return &Indexer{engine: engine}
}

// Index dispatches on the resource name extension: .vcf is read as vCard,
// anything else as iCalendar. The returned item has Name and Data set.
func (x *Indexer) Index(name string, data []byte) (*storage.Item, error) {
	var (
		item *storage.Item
		err  error
	)
	switch strings.ToLower(path.Ext(name)) {
	case ".vcf", ".vcard":
		item, err = x.FromVCard(data)
	default:
		item, err = x.FromICalendar(data)
	}
	if err != nil {
		return nil, err
	}
	item.Name = name
	return item, nil
}

// FromICalendar indexes a VCALENDAR object resource. The first VEVENT, VTODO
// or VJOURNAL without RECURRENCE-ID is the master; overridden instances of
// the same UID widen the event span.
func (x *Indexer) FromICalendar(data []byte) (*storage.Item, error) {
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, invalid("failed to decode calendar", err)
	}

	var master *ical.Component
	var overrides []*ical.Component
	for _, child := range cal.Children {
		if kindOf(child.Name) == storage.KindItem {
			continue
		}
		if child.Props.Get(ical.PropRecurrenceID) != nil {
			overrides = append(overrides, child)
			continue
		}
		if master == nil {
			master = child
		}
	}
	if master == nil {
		if len(overrides) == 0 {
			return nil, invalid("no VEVENT, VTODO or VJOURNAL in calendar", nil)
		}
		master = overrides[0]
	}

	item := &storage.Item{
		Kind: kindOf(master.Name),
		Data: data,
		ETag: storage.ETag(data),
	}
	if prop := master.Props.Get(ical.PropUID); prop != nil {
		item.UID = prop.Value
	}
	if prop := master.Props.Get(ical.PropSummary); prop != nil {
		if summary, err := prop.Text(); err == nil {
			item.DisplayName = summary
		}
	}

	start, end, ok := recurrence.ExtractBasicTimeInfoFromComponent(master)
	if !ok {
		return item, nil
	}

	span, err := x.engine.Span(start, end, recurrence.ExtractRecurrenceInfoFromComponent(master))
	if err != nil {
		return nil, invalid("failed to expand recurrence", err)
	}
	for _, o := range overrides {
		if s, e, ok := recurrence.ExtractBasicTimeInfoFromComponent(o); ok {
			if s.Before(span.Start) {
				span.Start = s
			}
			if e.After(span.End) {
				span.End = e
			}
		}
	}

	item.StartDate = timePtr(span.Start.UTC())
	item.EndDate = timePtr(span.End.UTC())
	item.Recurring = span.Recurring
	return item, nil
}

// FromVCard indexes a single vCard. FN becomes the display name.
func (x *Indexer) FromVCard(data []byte) (*storage.Item, error) {
	card, err := vcard.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalid("empty vCard", nil)
		}
		return nil, invalid("failed to decode vCard", err)
	}

	return &storage.Item{
		UID:         card.Value(vcard.FieldUID),
		DisplayName: card.PreferredValue(vcard.FieldFormattedName),
		Kind:        storage.KindCard,
		Data:        data,
		ETag:        storage.ETag(data),
	}, nil
}

func kindOf(component string) storage.Kind {
	switch component {
	case ical.CompEvent:
		return storage.KindEvent
	case ical.CompToDo:
		return storage.KindTodo
	case ical.CompJournal:
		return storage.KindJournal
	default:
		return storage.KindItem
	}
}

func invalid(msg string, err error) error {
	return &storage.Error{Type: storage.ErrInvalidInput, Message: msg, Err: err}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

