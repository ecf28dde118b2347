package deck

// Bundle is the runtime form of a deck consumed by the card engine.
type Bundle struct {
	Meta       Meta
	Tables     map[string][]Value
	States     map[string]StateDecl
	Scoreboard ScoreboardSpec
	Cards      []Card
}

// Compile indexes the deck's tables and states. References are not checked;
// a broken one surfaces when a card using it is drawn.
func Compile(d *Deck) *Bundle {
	b := &Bundle{
		Meta:       d.Meta,
		Tables:     make(map[string][]Value, len(d.Tables)),
		States:     make(map[string]StateDecl, len(d.States)),
		Scoreboard: d.Meta.Scoreboard,
		Cards:      make([]Card, len(d.Cards)),
	}
	for _, t := range d.Tables {
		b.Tables[t.Ident] = t.Values
	}
	for _, s := range d.States {
		b.States[s.Ident] = s
	}
	copy(b.Cards, d.Cards)
	return b
}
