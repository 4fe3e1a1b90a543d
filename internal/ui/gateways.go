package ui

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/libknx/knxgw/internal/gateway"
	"github.com/libknx/knxgw/internal/knxnet"
)

// GatewayView is the printable and JSON form of one gateway.
type GatewayView struct {
	Name            string   `json:"name"`
	Sender          string   `json:"sender,omitempty"`
	Control         string   `json:"control_endpoint,omitempty"`
	Address         string   `json:"individual_address,omitempty"`
	Medium          string   `json:"medium,omitempty"`
	Serial          string   `json:"serial,omitempty"`
	MAC             string   `json:"mac,omitempty"`
	Multicast       string   `json:"multicast,omitempty"`
	ProjectID       uint16   `json:"project_id,omitempty"`
	ProgrammingMode bool     `json:"programming_mode"`
	Families        []string `json:"service_families,omitempty"`
	Error           string   `json:"error,omitempty"`
}

func (v *GatewayView) applyDevice(d *knxnet.DeviceInfo, families []knxnet.ServiceFamily) {
	if d == nil {
		return
	}
	v.Name = d.Name
	v.Address = d.Address.String()
	v.Medium = d.Medium.String()
	v.Serial = d.Serial.String()
	v.MAC = d.MAC.String()
	v.Multicast = d.Multicast.String()
	v.ProjectID = d.ProjectID
	v.ProgrammingMode = d.ProgrammingMode
	v.Families = make([]string, len(families))
	for i, f := range families {
		v.Families[i] = f.String()
	}
}

// NewSearchView builds a view from a discovery record.
func NewSearchView(rec gateway.SearchRecord) GatewayView {
	v := GatewayView{
		Sender:  rec.Sender.String(),
		Control: rec.ControlEndpoint().String(),
	}
	if rec.Response != nil {
		v.applyDevice(rec.Response.Device, rec.Response.Families)
	}
	return v
}

// NewDescriptionView builds a view from a description of the gateway at addr.
func NewDescriptionView(addr netip.AddrPort, resp *knxnet.DescriptionResponse) GatewayView {
	v := GatewayView{Control: addr.String()}
	if resp != nil {
		v.applyDevice(resp.Device, resp.Families)
	}
	return v
}

// NewDescribeResultView merges a discovery record with its description.
// The description wins where both carry a value.
func NewDescribeResultView(r gateway.DescribeResult) GatewayView {
	v := NewSearchView(r.Record)
	if r.Description != nil {
		v.applyDevice(r.Description.Device, r.Description.Families)
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}

// Fields returns the view as ordered detail lines.
func (v GatewayView) Fields() []Field {
	var fields []Field
	add := func(k, val string) {
		if val != "" {
			fields = append(fields, Field{Key: k, Value: val})
		}
	}
	add("Control endpoint", v.Control)
	if v.Sender != "" && v.Sender != v.Control {
		add("Sender", v.Sender)
	}
	add("Address", v.Address)
	add("Medium", v.Medium)
	add("Serial", v.Serial)
	add("MAC", v.MAC)
	add("Multicast", v.Multicast)
	if v.ProjectID != 0 {
		add("Project ID", fmt.Sprintf("0x%04x", v.ProjectID))
	}
	add("Services", strings.Join(v.Families, ", "))
	return fields
}

// RenderGatewayCard renders one gateway as a bordered card.
func RenderGatewayCard(v GatewayView, width int) string {
	width = clampWidth(width)

	name := v.Name
	if name == "" {
		name = "(unnamed)"
	}
	title := GatewayNameStyle.Render(name)
	if v.ProgrammingMode {
		title += "  " + ProgrammingModeStyle.Render("PROGRAMMING MODE")
	}

	lines := []string{title}
	for _, f := range v.Fields() {
		lines = append(lines, ResultKeyStyle.Render(f.Key+":")+" "+ResultValueStyle.Render(f.Value))
	}
	if v.Error != "" {
		lines = append(lines, ErrorMessageStyle.Render(FailureMarker+" "+v.Error))
	}
	return CardStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderGatewayTable renders gateways one per line.
func RenderGatewayTable(views []GatewayView) string {
	header := []string{"NAME", "CONTROL", "ADDRESS", "MEDIUM", "SERIAL"}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		name := v.Name
		if v.ProgrammingMode {
			name += " (prog)"
		}
		if v.Error != "" {
			name += " " + FailureMarker
		}
		rows = append(rows, []string{name, v.Control, v.Address, v.Medium, v.Serial})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	pad := func(cells []string) string {
		out := make([]string, len(cells))
		for i, c := range cells {
			out[i] = c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
		}
		return strings.TrimRight(strings.Join(out, "  "), " ")
	}

	lines := []string{TableHeaderStyle.Render(pad(header))}
	for _, row := range rows {
		lines = append(lines, pad(row))
	}
	return strings.Join(lines, "\n")
}
