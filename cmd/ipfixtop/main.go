// Command ipfixtop is a terminal dashboard over a running collector: a
// table of cached templates on the left, a scrolling tail of recently
// decoded records on the right, refreshed live as a UDP listener feeds
// them in.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/flowlens/ipfixcore"
	"github.com/flowlens/ipfixcore/transport/udp"
)

func main() {
	bindAddr := flag.String("udp", ":4739", "address to bind the UDP listener to")
	flag.Parse()

	app := tview.NewApplication()
	dash := newDashboard()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := ipfix.NewEphemeralCache()
	l := udp.New(*bindAddr, func() ipfix.TemplateCache { return cache }, ipfix.SinkFunc(func(ctx context.Context, rec ipfix.Record) error {
		dash.recordCh <- rec
		return nil
	}))

	go func() {
		if err := l.Listen(ctx); err != nil {
			log.Printf("udp listener stopped: %v", err)
		}
	}()

	go dash.run(ctx, app, cache)

	if err := app.SetRoot(dash.layout, true).Run(); err != nil {
		log.Fatal(err)
	}
	cancel()
}

type dashboard struct {
	layout        *tview.Flex
	templateTable *tview.Table
	tailView      *tview.TextView
	recordCh      chan ipfix.Record
}

func newDashboard() *dashboard {
	d := &dashboard{recordCh: make(chan ipfix.Record, 256)}

	d.templateTable = tview.NewTable().SetBorders(false).SetFixed(1, 0)
	d.templateTable.SetBorder(true).SetTitle(" templates ")
	d.templateTable.SetCell(0, 0, tview.NewTableCell("domain").SetSelectable(false).SetTextColor(tcell.ColorYellow))
	d.templateTable.SetCell(0, 1, tview.NewTableCell("template").SetSelectable(false).SetTextColor(tcell.ColorYellow))
	d.templateTable.SetCell(0, 2, tview.NewTableCell("fields").SetSelectable(false).SetTextColor(tcell.ColorYellow))

	d.tailView = tview.NewTextView().SetDynamicColors(true).SetMaxLines(500)
	d.tailView.SetBorder(true).SetTitle(" recent records ")

	d.layout = tview.NewFlex().
		AddItem(d.templateTable, 0, 1, false).
		AddItem(d.tailView, 0, 2, false)

	return d
}

func (d *dashboard) run(ctx context.Context, app *tview.Application, cache ipfix.TemplateCache) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-d.recordCh:
			line := fmt.Sprintf("[green]%d/%d[white] %v\n", rec.Template.Key.ObservationDomainId, rec.Template.Key.TemplateId, rec.Data.Map())
			app.QueueUpdateDraw(func() {
				fmt.Fprint(d.tailView, line)
			})
		case <-ticker.C:
			templates, err := cache.All(ctx)
			if err != nil {
				continue
			}
			app.QueueUpdateDraw(func() {
				d.refreshTemplates(templates)
			})
		}
	}
}

func (d *dashboard) refreshTemplates(templates map[ipfix.TemplateKey]ipfix.Template) {
	keys := make([]ipfix.TemplateKey, 0, len(templates))
	for k := range templates {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ObservationDomainId != keys[j].ObservationDomainId {
			return keys[i].ObservationDomainId < keys[j].ObservationDomainId
		}
		return keys[i].TemplateId < keys[j].TemplateId
	})

	for i, key := range keys {
		tmpl := templates[key]
		row := i + 1
		d.templateTable.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf("%d", key.ObservationDomainId)))
		d.templateTable.SetCell(row, 1, tview.NewTableCell(fmt.Sprintf("%d", key.TemplateId)))
		d.templateTable.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%d", len(tmpl.Fields))))
	}
}
