package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"gioui.org/app"
	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/oligo/textsync"
	"github.com/oligo/textsync/engine"
	"github.com/oligo/textsync/engine/enginetest"
	"github.com/oligo/textsync/mirror"
	"github.com/oligo/textsync/overlay"
	"github.com/oligo/textsync/textinput"
	tsw "github.com/oligo/textsync/widget"
)

type (
	C = layout.Context
	D = layout.Dimensions
)

type DocumentApp struct {
	window *app.Window
	th     *material.Theme
	state  *textsync.Controller
	list   widget.List
}

func (d *DocumentApp) run() error {
	var ops op.Ops
	for {
		e := d.window.Event()

		switch e := e.(type) {
		case app.DestroyEvent:
			d.state.Close()
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			layout.UniformInset(unit.Dp(16)).Layout(gtx, func(gtx C) D {
				return tsw.NewDocument(d.th, d.state, &d.list).Layout(gtx)
			})
			e.Frame(gtx.Ops)
		}
	}
}

func sampleEngine() *enginetest.Engine {
	e := enginetest.New("1 2 3 4", "5 6 7 1", "")
	e.SetMeta("Sample", "Anonymous")
	e.Simple = []rune("1234567 -.")
	e.Transforms = []enginetest.Transform{{From: "|:", To: "𝄆"}, {From: ":|", To: "𝄇"}}
	e.Gap = 4
	e.SetOverlays(0,
		engine.OverlayAnchor{Kind: engine.OverlayTala, CharIndex: 0, Content: "X"},
		engine.OverlayAnchor{Kind: engine.OverlayLyric, CharIndex: 0, Content: "sa"},
		engine.OverlayAnchor{Kind: engine.OverlayLyric, CharIndex: 2, Content: "re"},
	)
	e.SetOverlays(1,
		engine.OverlayAnchor{Kind: engine.OverlayTala, CharIndex: 0, Content: "2"},
	)
	return e
}

func main() {
	debug := flag.Bool("debug", false, "log engine traffic")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	textsync.SetLogger(logger)
	overlay.SetLogger(logger)

	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))

	documentApp := DocumentApp{
		window: &app.Window{},
		th:     th,
	}
	documentApp.window.Option(app.Title("textsync"))

	eng := sampleEngine()
	documentApp.state = textsync.New(eng,
		textsync.WithLogger(logger),
		textsync.WithWidgetFactory(textinput.New),
		textsync.WithOverlayClient(overlay.NewClient(eng, mirror.NewShaperMirror(th.Shaper))),
		textsync.WithInvalidator(documentApp.window.Invalidate),
	)
	if err := documentApp.state.Load(context.Background()); err != nil {
		log.Fatal(err)
	}

	go func() {
		err := documentApp.run()
		if err != nil {
			os.Exit(1)
		}

		os.Exit(0)
	}()

	app.Main()
}
