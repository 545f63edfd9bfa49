package ui

import (
	"strings"

	"github.com/jroimartin/gocui"
)

// Input is a single line editable view. Runes rejected by Accept are not
// inserted, a nil Accept takes any printable rune.
type Input struct {
	Name      string
	Title     string
	X, Y      int
	W         int
	MaxLength int
	Accept    func(rune) bool
}

func (i *Input) Layout(g *gocui.Gui) error {
	v, err := g.SetView(i.Name, i.X, i.Y, i.X+i.W, i.Y+2)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = i.Title
		v.Editor = i
		v.Editable = true
	}
	return nil
}

func (i *Input) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	cx, _ := v.Cursor()
	ox, _ := v.Origin()
	pos := ox + cx
	switch {
	case key == gocui.KeySpace:
		if i.insertable(pos, ' ') {
			v.EditWrite(' ')
		}
	case ch != 0 && mod == 0:
		if i.insertable(pos, ch) {
			v.EditWrite(ch)
		}
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		v.EditDelete(true)
	case key == gocui.KeyDelete:
		v.EditDelete(false)
	case key == gocui.KeyArrowLeft:
		v.MoveCursor(-1, 0, false)
	case key == gocui.KeyArrowRight:
		if pos < len(i.text(v)) {
			v.MoveCursor(1, 0, false)
		}
	}
}

func (i *Input) insertable(pos int, ch rune) bool {
	if i.MaxLength > 0 && pos+1 > i.MaxLength {
		return false
	}
	if i.Accept != nil {
		return i.Accept(ch)
	}
	return ch >= ' '
}

func (i *Input) text(v *gocui.View) string {
	return strings.TrimRight(v.Buffer(), "\n")
}

// Value returns the current text of the input.
func (i *Input) Value(g *gocui.Gui) string {
	v, err := g.View(i.Name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(i.text(v))
}

// SetError shows err in the title, nil restores it.
func (i *Input) SetError(g *gocui.Gui, err error) {
	v, verr := g.View(i.Name)
	if verr != nil {
		return
	}
	if err == nil {
		v.Title = i.Title
		return
	}
	v.Title = i.Title + ": " + err.Error()
}

// EtherTypeRune accepts the runes of a comma separated ethertype list, hex
// with a 0x prefix or decimal.
func EtherTypeRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		return true
	case r == 'x' || r == 'X' || r == ',' || r == ' ':
		return true
	}
	return false
}
