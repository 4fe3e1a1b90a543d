package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/libknx/knxgw/internal/gateway"
	"github.com/libknx/knxgw/internal/ui"
)

// output renders command results in the selected --format.
type output struct {
	format  string
	printer *ui.Printer
}

func newOutput(w io.Writer) *output {
	return &output{format: outputFormat, printer: ui.NewPrinter(w)}
}

func (o *output) detailed() bool {
	return o.format == formatDetailed
}

func (o *output) header(title, command string, params []ui.Field) {
	if o.detailed() {
		o.printer.PrintHeader(title, command, params)
	}
}

// window runs work, with a live countdown in detailed mode.
func (o *output) window(ctx context.Context, label string, d time.Duration, work func(context.Context) error) error {
	if !o.detailed() {
		return work(ctx)
	}
	return ui.RunWindow(ctx, o.printer.Writer(), label, d, work)
}

func (o *output) gateways(views []ui.GatewayView) error {
	switch o.format {
	case formatJSON:
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		o.printer.Println(string(data))
	case formatCompact:
		if len(views) > 0 {
			o.printer.Println(ui.RenderGatewayTable(views))
		}
	default:
		for _, v := range views {
			o.printer.Println(ui.RenderGatewayCard(v, o.printer.Width()))
		}
	}
	return nil
}

func (o *output) success(title string, details []ui.Field) {
	switch o.format {
	case formatDetailed:
		o.printer.PrintSuccess(title, details)
	case formatCompact:
		o.printer.Println(ui.SuccessMarker + " " + title)
	}
}

func (o *output) warning(title string, details []ui.Field) {
	switch o.format {
	case formatDetailed:
		o.printer.PrintWarning(title, details)
	case formatCompact:
		o.printer.Println(ui.WarningMarker + " " + title)
	}
}

// summary reports how many gateways answered the search.
func (o *output) summary(n int, window time.Duration) {
	details := []ui.Field{{Key: "Window", Value: window.String()}}
	if n == 0 {
		o.warning("No gateways found", details)
		return
	}
	title := fmt.Sprintf("%d gateways found", n)
	if n == 1 {
		title = "1 gateway found"
	}
	o.success(title, details)
}

// failure renders err in detailed mode and returns the error to exit with.
func (o *output) failure(title string, err error) error {
	if !o.detailed() {
		return err
	}
	o.printer.PrintError(title, err, gateway.GetTroubleshootingHint(err))
	return &reportedError{err}
}
