package deck

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	segmentRaw       = "Raw"
	segmentActionRef = "ActionRef"

	actionUpdateState  = "UpdateState"
	actionOption       = "Option"
	actionGetFromTable = "GetFromTable"
	actionGetFromState = "GetFromState"

	dataString          = "String"
	dataInteger         = "Integer"
	dataActionReference = "ActionReference"
)

type valueWire struct {
	Value string   `json:"value"`
	Tags  []string `json:"tags"`
}

type segmentWire struct {
	Segment string `json:"segment"`
	Text    string `json:"text,omitempty"`
	Ident   string `json:"ident,omitempty"`
}

type dataWire struct {
	Type    string `json:"type"`
	String  string `json:"string,omitempty"`
	Integer *int   `json:"integer,omitempty"`
	Ident   string `json:"ident,omitempty"`
}

type actionWire struct {
	Type         string              `json:"type"`
	Ident        string              `json:"ident"`
	StateIdent   string              `json:"stateIdent,omitempty"`
	Delta        jsoniter.RawMessage `json:"delta,omitempty"`
	Add          bool                `json:"add,omitempty"`
	Selector     Selector            `json:"selector,omitempty"`
	Display      string              `json:"display,omitempty"`
	ActionIdents []string            `json:"actionIdents,omitempty"`
	TableIdent   string              `json:"tableIdent,omitempty"`
	RequiredTags []string            `json:"requiredTags,omitempty"`
}

type cardWire struct {
	Segments []segmentWire `json:"segments"`
	Actions  []actionWire  `json:"actions"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueWire{Value: v.Text, Tags: tagSlice(v.Tags)})
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var w valueWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	v.Text = w.Value
	v.Tags = newTagSet(w.Tags)
	return nil
}

func parseSelector(s Selector) (Selector, error) {
	switch s {
	case "", SelectorNone:
		return SelectorNone, nil
	case SelectorCurrent, SelectorNext, SelectorPrevious, SelectorRandom:
		return s, nil
	}
	return "", &UnknownVariantError{Union: "selector", Variant: string(s)}
}

func parseCondition(c Condition) (Condition, error) {
	switch c {
	case "", ConditionNone:
		return ConditionNone, nil
	case ConditionBiggest, ConditionLowest, ConditionClosest, ConditionFirstToReach:
		return c, nil
	}
	return "", &UnknownVariantError{Union: "scoreboard condition", Variant: string(c)}
}

type deckWire struct {
	Meta   Meta        `json:"meta"`
	Tables []Table     `json:"tables"`
	States []StateDecl `json:"states"`
	Cards  []cardWire  `json:"cards"`
}

// decodeDeck returns variant errors with their type intact.
func decodeDeck(b []byte) (*Deck, error) {
	var w deckWire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	condition, err := parseCondition(w.Meta.Scoreboard.Condition)
	if err != nil {
		return nil, err
	}
	d := &Deck{
		Meta:   w.Meta,
		Tables: w.Tables,
		States: w.States,
		Cards:  make([]Card, 0, len(w.Cards)),
	}
	d.Meta.Scoreboard.Condition = condition
	for i, cw := range w.Cards {
		var c Card
		if err := c.fromWire(cw); err != nil {
			return nil, errors.Wrapf(err, "Invalid card %d", i)
		}
		d.Cards = append(d.Cards, c)
	}
	return d, nil
}

func (d *Deck) UnmarshalJSON(b []byte) error {
	decoded, err := decodeDeck(b)
	if err != nil {
		return err
	}
	*d = *decoded
	return nil
}

func (c Card) MarshalJSON() ([]byte, error) {
	w := cardWire{
		Segments: make([]segmentWire, 0, len(c.Segments)),
		Actions:  make([]actionWire, 0, len(c.Actions)),
	}
	for _, s := range c.Segments {
		switch seg := s.(type) {
		case RawSegment:
			w.Segments = append(w.Segments, segmentWire{Segment: segmentRaw, Text: seg.Text})
		case ActionRefSegment:
			w.Segments = append(w.Segments, segmentWire{Segment: segmentActionRef, Ident: seg.Ident})
		default:
			return nil, fmt.Errorf("Unexpected segment type %T", s)
		}
	}
	for _, a := range c.Actions {
		aw, err := encodeAction(a)
		if err != nil {
			return nil, err
		}
		w.Actions = append(w.Actions, aw)
	}
	return json.Marshal(w)
}

func (c *Card) UnmarshalJSON(b []byte) error {
	var w cardWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	return c.fromWire(w)
}

func (c *Card) fromWire(w cardWire) error {
	c.Segments = make([]Segment, 0, len(w.Segments))
	for _, sw := range w.Segments {
		switch sw.Segment {
		case segmentRaw:
			c.Segments = append(c.Segments, RawSegment{Text: sw.Text})
		case segmentActionRef:
			c.Segments = append(c.Segments, ActionRefSegment{Ident: sw.Ident})
		default:
			return &UnknownVariantError{Union: "segment", Variant: sw.Segment}
		}
	}
	c.Actions = make([]Action, 0, len(w.Actions))
	for _, aw := range w.Actions {
		a, err := decodeAction(aw)
		if err != nil {
			return err
		}
		c.Actions = append(c.Actions, a)
	}
	return nil
}

func encodeAction(a Action) (actionWire, error) {
	switch act := a.(type) {
	case UpdateState:
		delta, err := EncodeData(act.Delta)
		if err != nil {
			return actionWire{}, errors.Wrapf(err, "Unable to encode delta of action [%s]", act.Ident)
		}
		return actionWire{
			Type:       actionUpdateState,
			Ident:      act.Ident,
			StateIdent: act.StateIdent,
			Delta:      delta,
			Add:        act.Add,
			Selector:   act.Selector,
		}, nil
	case Option:
		return actionWire{
			Type:         actionOption,
			Ident:        act.Ident,
			Display:      act.Display,
			ActionIdents: act.ActionIdents,
		}, nil
	case GetFromTable:
		return actionWire{
			Type:         actionGetFromTable,
			Ident:        act.Ident,
			TableIdent:   act.TableIdent,
			RequiredTags: tagSlice(act.RequiredTags),
		}, nil
	case GetFromState:
		return actionWire{
			Type:       actionGetFromState,
			Ident:      act.Ident,
			StateIdent: act.StateIdent,
			Selector:   act.Selector,
		}, nil
	}
	return actionWire{}, fmt.Errorf("Unexpected action type %T", a)
}

func decodeAction(w actionWire) (Action, error) {
	selector, err := parseSelector(w.Selector)
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid selector in action [%s]", w.Ident)
	}
	switch w.Type {
	case actionUpdateState:
		var delta Data = IntegerData{}
		if len(w.Delta) > 0 {
			d, err := DecodeData(w.Delta)
			if err != nil {
				return nil, errors.Wrapf(err, "Invalid delta in action [%s]", w.Ident)
			}
			delta = d
		}
		return UpdateState{
			Ident:      w.Ident,
			StateIdent: w.StateIdent,
			Delta:      delta,
			Add:        w.Add,
			Selector:   selector,
		}, nil
	case actionOption:
		return Option{Ident: w.Ident, Display: w.Display, ActionIdents: w.ActionIdents}, nil
	case actionGetFromTable:
		return GetFromTable{
			Ident:        w.Ident,
			TableIdent:   w.TableIdent,
			RequiredTags: newTagSet(w.RequiredTags),
		}, nil
	case actionGetFromState:
		return GetFromState{Ident: w.Ident, StateIdent: w.StateIdent, Selector: selector}, nil
	}
	return nil, &UnknownVariantError{Union: "action", Variant: w.Type}
}

// EncodeData writes the tagged JSON form of d.
func EncodeData(d Data) ([]byte, error) {
	switch v := d.(type) {
	case nil:
		return nil, nil
	case StringData:
		return json.Marshal(dataWire{Type: dataString, String: v.Value})
	case IntegerData:
		i := v.Value
		return json.Marshal(dataWire{Type: dataInteger, Integer: &i})
	case ActionReferenceData:
		return json.Marshal(dataWire{Type: dataActionReference, Ident: v.Ident})
	}
	return nil, fmt.Errorf("Unexpected data type %T", d)
}

func DecodeData(b []byte) (Data, error) {
	var w dataWire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	switch w.Type {
	case dataString:
		return StringData{Value: w.String}, nil
	case dataInteger:
		i := 0
		if w.Integer != nil {
			i = *w.Integer
		}
		return IntegerData{Value: i}, nil
	case dataActionReference:
		return ActionReferenceData{Ident: w.Ident}, nil
	}
	return nil, &UnknownVariantError{Union: "data", Variant: w.Type}
}
