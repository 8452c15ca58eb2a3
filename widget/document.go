package widget

import (
	"image/color"
	"strconv"

	"gioui.org/font"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/oligo/textsync"
	"github.com/oligo/textsync/engine"
	"github.com/oligo/textsync/internal/painter"
	"github.com/oligo/textsync/mirror"
	"github.com/oligo/textsync/textinput"
	"golang.org/x/image/math/fixed"
)

// DocumentStyle lays out the lines of a Controller: a role indicator, the tala
// row, the text input and the lyric row of every line.
type DocumentStyle struct {
	Font font.Font
	// TextSize set the size of the line text.
	TextSize unit.Sp
	// OverlaySize set the size of lyrics and talas.
	OverlaySize unit.Sp
	// Color is the text color.
	Color color.NRGBA
	// SelectionColor is the color of the background for selected text.
	SelectionColor color.NRGBA
	// RoleColor is the color of the role indicator.
	RoleColor color.NRGBA
	// RoleWidth is the width of the gutter holding role indicators.
	RoleWidth unit.Dp
	// LineGap is the space between two lines.
	LineGap unit.Dp

	Controller *textsync.Controller
	List       *widget.List
	th         *material.Theme
	shaper     *text.Shaper
}

func NewDocument(th *material.Theme, c *textsync.Controller, list *widget.List) DocumentStyle {
	list.Axis = layout.Vertical
	return DocumentStyle{
		Controller:     c,
		List:           list,
		th:             th,
		shaper:         th.Shaper,
		Font:           font.Font{Typeface: th.Face},
		TextSize:       th.TextSize,
		OverlaySize:    th.TextSize * 0.8,
		Color:          th.Fg,
		SelectionColor: mulAlpha(th.ContrastBg, 0x60),
		RoleColor:      mulAlpha(th.Fg, 0xb6),
		RoleWidth:      unit.Dp(48),
		LineGap:        unit.Dp(8),
	}
}

func (d DocumentStyle) Layout(gtx layout.Context) layout.Dimensions {
	d.Controller.Update()
	d.Controller.SetMirrorStyle(mirror.Style{
		Font:    d.Font,
		PxPerEm: fixed.I(gtx.Sp(d.TextSize)),
	})

	textMaterial := painter.Material(gtx.Ops, paint.ColorOp{Color: blendDisabledColor(!gtx.Enabled(), d.Color)})
	selectMaterial := painter.Material(gtx.Ops, paint.ColorOp{Color: blendDisabledColor(!gtx.Enabled(), d.SelectionColor)})
	lines := d.Controller.Lines()

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(d.layoutHeader),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return material.List(d.th, d.List).Layout(gtx, len(lines), func(gtx layout.Context, i int) layout.Dimensions {
				return layout.Inset{Bottom: d.LineGap}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
					return d.layoutLine(gtx, i, lines[i], textMaterial, selectMaterial)
				})
			})
		}),
	)
}

func (d DocumentStyle) layoutHeader(gtx layout.Context) layout.Dimensions {
	title, composer := d.Controller.Title(), d.Controller.Composer()
	if title == "" && composer == "" {
		return layout.Dimensions{}
	}

	return layout.Inset{Bottom: d.LineGap}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				lb := material.Label(d.th, d.TextSize*1.4, title)
				lb.Font.Weight = font.SemiBold
				lb.Alignment = text.Middle
				return lb.Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				lb := material.Label(d.th, d.TextSize, composer)
				lb.Color = d.RoleColor
				lb.Alignment = text.Middle
				return lb.Layout(gtx)
			}),
		)
	})
}

func (d DocumentStyle) layoutLine(gtx layout.Context, index int, line textsync.Line, textMaterial, selectMaterial op.CallOp) layout.Dimensions {
	// A click on a tala or a lyric puts the caret on the character it
	// annotates.
	for _, kind := range []engine.OverlayKind{engine.OverlayTala, engine.OverlayLyric} {
		if it, ok := line.Overlays.Update(gtx, kind); ok {
			d.Controller.FocusAt(index, it.CharIndex)
		}
	}

	return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			gtx.Constraints.Min.X = gtx.Dp(d.RoleWidth)
			gtx.Constraints.Max.X = gtx.Constraints.Min.X
			lb := material.Label(d.th, d.OverlaySize, roleText(line.Role))
			lb.Color = d.RoleColor
			return lb.Layout(gtx)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return line.Overlays.Layout(gtx, d.th, engine.OverlayTala, d.OverlaySize)
				}),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					in, ok := line.Widget.(*textinput.LineInput)
					if !ok {
						return material.Label(d.th, d.TextSize, line.Widget.Value()).Layout(gtx)
					}
					return in.Layout(gtx, d.shaper, d.Font, d.TextSize, textMaterial, selectMaterial)
				}),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return line.Overlays.Layout(gtx, d.th, engine.OverlayLyric, d.OverlaySize)
				}),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					if line.Label == "" {
						return layout.Dimensions{}
					}
					lb := material.Label(d.th, d.OverlaySize, line.Label)
					lb.Color = d.RoleColor
					return lb.Layout(gtx)
				}),
			)
		}),
	)
}

func roleText(r engine.Role) string {
	if r.Kind == "" {
		return ""
	}
	s := string(r.Kind)
	if r.GroupCount > 0 {
		s += " " + strconv.Itoa(r.GroupCount)
	}
	return s
}

func blendDisabledColor(disabled bool, c color.NRGBA) color.NRGBA {
	if disabled {
		return disabledColor(c)
	}
	return c
}

// mulAlpha applies the alpha to the color.
func mulAlpha(c color.NRGBA, alpha uint8) color.NRGBA {
	c.A = uint8(uint32(c.A) * uint32(alpha) / 0xFF)
	return c
}

// approxLuminance is a fast approximate version of RGBA.Luminance.
func approxLuminance(c color.NRGBA) byte {
	const (
		r = 13933 // 0.2126 * 256 * 256
		g = 46871 // 0.7152 * 256 * 256
		b = 4732  // 0.0722 * 256 * 256
		t = r + g + b
	)
	return byte((r*int(c.R) + g*int(c.G) + b*int(c.B)) / t)
}

// Disabled blends color towards the luminance and multiplies alpha.
func disabledColor(c color.NRGBA) (d color.NRGBA) {
	const r = 80 // blend ratio
	lum := approxLuminance(c)
	d = mix(c, color.NRGBA{A: c.A, R: lum, G: lum, B: lum}, r)
	d = mulAlpha(d, 128+32)
	return
}

// mix mixes c1 and c2 weighted by (1 - a/256) and a/256 respectively.
func mix(c1, c2 color.NRGBA, a uint8) color.NRGBA {
	ai := int(a)
	return color.NRGBA{
		R: byte((int(c1.R)*ai + int(c2.R)*(256-ai)) / 256),
		G: byte((int(c1.G)*ai + int(c2.G)*(256-ai)) / 256),
		B: byte((int(c1.B)*ai + int(c2.B)*(256-ai)) / 256),
		A: byte((int(c1.A)*ai + int(c2.A)*(256-ai)) / 256),
	}
}
