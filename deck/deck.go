package deck

import (
	"sort"

	mapset "github.com/deckarep/golang-set"
)

// Deck is an authored deck document.
type Deck struct {
	Meta   Meta        `json:"meta"`
	Tables []Table     `json:"tables"`
	States []StateDecl `json:"states"`
	Cards  []Card      `json:"cards"`
}

type Meta struct {
	DeckName   string         `json:"deckName"`
	ID         string         `json:"id"`
	Scoreboard ScoreboardSpec `json:"scoreboard"`
	// MaxCards ends the game once that many cards were drawn. 0 means unlimited.
	MaxCards int `json:"maxCards"`
	// MaxPlayers caps session joins. 0 means unlimited.
	MaxPlayers int `json:"maxPlayers"`
}

type ScoreboardSpec struct {
	StateIdent string    `json:"stateIdent"`
	Condition  Condition `json:"condition"`
}

type Table struct {
	Ident  string  `json:"ident"`
	Values []Value `json:"values"`
}

// Value is a table entry. Tags is a set of strings.
type Value struct {
	Text string
	Tags mapset.Set
}

func NewValue(text string, tags ...string) Value {
	return Value{Text: text, Tags: newTagSet(tags)}
}

// HasTags reports whether the value carries every tag in required.
func (v Value) HasTags(required mapset.Set) bool {
	if required == nil || required.Cardinality() == 0 {
		return true
	}
	if v.Tags == nil {
		return false
	}
	return v.Tags.IsSuperset(required)
}

type StateDecl struct {
	Ident      string `json:"ident"`
	Value      int    `json:"value"`
	Individual bool   `json:"individual"`
}

type Card struct {
	Segments []Segment
	Actions  []Action
}

// Segment is RawSegment or ActionRefSegment.
type Segment interface {
	segmentKind() string
}

type RawSegment struct {
	Text string
}

type ActionRefSegment struct {
	Ident string
}

func (RawSegment) segmentKind() string       { return segmentRaw }
func (ActionRefSegment) segmentKind() string { return segmentActionRef }

// Action is one of UpdateState, Option, GetFromTable or GetFromState.
type Action interface {
	ActionIdent() string
	actionKind() string
}

type UpdateState struct {
	Ident      string
	StateIdent string
	Delta      Data
	Add        bool
	Selector   Selector
}

type Option struct {
	Ident        string
	Display      string
	ActionIdents []string
}

type GetFromTable struct {
	Ident        string
	TableIdent   string
	RequiredTags mapset.Set
}

type GetFromState struct {
	Ident      string
	StateIdent string
	Selector   Selector
}

func (a UpdateState) ActionIdent() string  { return a.Ident }
func (a Option) ActionIdent() string       { return a.Ident }
func (a GetFromTable) ActionIdent() string { return a.Ident }
func (a GetFromState) ActionIdent() string { return a.Ident }

func (UpdateState) actionKind() string  { return actionUpdateState }
func (Option) actionKind() string       { return actionOption }
func (GetFromTable) actionKind() string { return actionGetFromTable }
func (GetFromState) actionKind() string { return actionGetFromState }

// Data is StringData, IntegerData or ActionReferenceData.
type Data interface {
	dataKind() string
}

type StringData struct {
	Value string
}

type IntegerData struct {
	Value int
}

type ActionReferenceData struct {
	Ident string
}

func (StringData) dataKind() string          { return dataString }
func (IntegerData) dataKind() string         { return dataInteger }
func (ActionReferenceData) dataKind() string { return dataActionReference }

// IntValue returns the integer carried by d. Other variants count as 0.
func IntValue(d Data) int {
	if i, ok := d.(IntegerData); ok {
		return i.Value
	}
	return 0
}

type Selector string

const (
	SelectorNone     Selector = "None"
	SelectorCurrent  Selector = "Current"
	SelectorNext     Selector = "Next"
	SelectorPrevious Selector = "Previous"
	SelectorRandom   Selector = "Random"
)

type Condition string

const (
	ConditionNone         Condition = "None"
	ConditionBiggest      Condition = "Biggest"
	ConditionLowest       Condition = "Lowest"
	ConditionClosest      Condition = "Closest"
	ConditionFirstToReach Condition = "FirstToReach"
)

func newTagSet(tags []string) mapset.Set {
	s := mapset.NewSet()
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

func tagSlice(s mapset.Set) []string {
	if s == nil {
		return []string{}
	}
	tags := make([]string, 0, s.Cardinality())
	for _, t := range s.ToSlice() {
		tags = append(tags, t.(string))
	}
	sort.Strings(tags)
	return tags
}
