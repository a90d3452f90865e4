package visualization

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"

	"github.com/nvandessel/wirelogic/internal/circuit"
)

// templates contains the embedded HTML templates.
//
//go:embed templates/*
var templates embed.FS

const (
	svgPadding  = 40.0
	svgPartSize = 28.0
)

type svgPart struct {
	ID        int
	Left, Top float64
	Size      float64
	Label     string
	Class     string
}

type svgWire struct {
	X1, Y1, X2, Y2 float64
	Class          string
	Title          string
}

// htmlTemplateData holds data passed to the HTML template.
type htmlTemplateData struct {
	Title   string
	ViewBox string
	Parts   []svgPart
	Wires   []svgWire

	// Live enables the polling script used by Server.
	Live          bool
	RefreshMillis int
}

// RenderHTML produces a self-contained HTML page drawing c as SVG at the
// parts' recorded positions.
func RenderHTML(c *circuit.Circuit) ([]byte, error) {
	return renderHTML(c, false, 0)
}

func renderHTML(c *circuit.Circuit, live bool, refreshMillis int) ([]byte, error) {
	tmplBytes, err := templates.ReadFile("templates/circuit.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read HTML template: %w", err)
	}
	tmpl, err := template.New("circuit").Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("parse HTML template: %w", err)
	}

	data := htmlTemplateData{
		Title:         fmt.Sprintf("circuit: %d parts, %d wires", len(c.Parts()), len(c.Wires())),
		Live:          live,
		RefreshMillis: refreshMillis,
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range c.Parts() {
		minX, maxX = math.Min(minX, p.Position.X), math.Max(maxX, p.Position.X)
		minY, maxY = math.Min(minY, p.Position.Y), math.Max(maxY, p.Position.Y)
		size := partSize(p)
		data.Parts = append(data.Parts, svgPart{
			ID:    int(p.ID),
			Left:  p.Position.X - size/2,
			Top:   p.Position.Y - size/2,
			Size:  size,
			Label: fmt.Sprintf("%s #%d", p.Category, p.ID),
			Class: partClass(p),
		})
	}
	if len(c.Parts()) == 0 {
		minX, minY, maxX, maxY = 0, 0, 0, 0
	}
	data.ViewBox = fmt.Sprintf("%g %g %g %g",
		minX-svgPadding, minY-svgPadding, maxX-minX+2*svgPadding, maxY-minY+2*svgPadding)

	for _, w := range c.Wires() {
		a, b := w.Ends()
		class := "wire"
		if wirePowered(w) {
			class = "wire powered"
		}
		data.Wires = append(data.Wires, svgWire{
			X1:    a.Part().Position.X,
			Y1:    a.Part().Position.Y,
			X2:    b.Part().Position.X,
			Y2:    b.Part().Position.Y,
			Class: class,
			Title: fmt.Sprintf("#%d %s - #%d %s", a.Part().ID, a.Role(), b.Part().ID, b.Role()),
		})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute HTML template: %w", err)
	}
	return buf.Bytes(), nil
}

func partSize(p *circuit.Part) float64 {
	if p.Category == circuit.Joint {
		return svgPartSize / 4
	}
	return svgPartSize
}

func partClass(p *circuit.Part) string {
	class := "part " + p.Category.String()
	if p.Powered() {
		class += " powered"
	}
	if p.Energized() {
		class += " energized"
	}
	return class
}
