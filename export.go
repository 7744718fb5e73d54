package hopper

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ExportConfig configures the exporting of a trajectory.
type ExportConfig struct {
	Dir       string
	Filename  string
	AsCSV     bool
	Plot      bool
	Timestamp bool
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV && !c.Plot
}

// path returns the path of the file with the provided extension, stamped if requested.
func (c ExportConfig) path(ext string, now time.Time) string {
	name := c.Filename
	if name == "" {
		name = "trajectory"
	}
	if c.Timestamp {
		name = fmt.Sprintf("%s-%d-%02d-%02dT%02d.%02d.%02d", name, now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	}
	return filepath.Join(c.Dir, name+"."+ext)
}

// Export writes the trajectory as configured and returns the paths of the files written.
func Export(conf ExportConfig, p LaunchParameters, g TargetGeometry, samples []TrajectorySample) ([]string, error) {
	var written []string
	now := time.Now().UTC()
	if conf.AsCSV {
		path := conf.path("csv", now)
		f, err := os.Create(path)
		if err != nil {
			return written, err
		}
		if _, err := fmt.Fprintf(f, "# Creation date (UTC): %s\n# Launch: %s\n", now, p); err != nil {
			f.Close()
			return written, err
		}
		if err := WriteCSV(f, samples); err != nil {
			f.Close()
			return written, err
		}
		if err := f.Close(); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if conf.Plot {
		path := conf.path("png", now)
		if err := PlotTrajectory(path, p, g, samples); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteCSV writes one record per sample. Positions are in inches and forces in kg.in/s^2.
func WriteCSV(w io.Writer, samples []TrajectorySample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t", "x", "y", "magnus_x", "magnus_y", "drag_x", "drag_y"}); err != nil {
		return err
	}
	for _, s := range samples {
		record := []string{
			strconv.FormatFloat(s.T, 'f', 6, 64),
			strconv.FormatFloat(s.Position.X, 'f', 6, 64),
			strconv.FormatFloat(s.Position.Y, 'f', 6, 64),
			strconv.FormatFloat(s.Magnus.X, 'g', 8, 64),
			strconv.FormatFloat(s.Magnus.Y, 'g', 8, 64),
			strconv.FormatFloat(s.Drag.X, 'g', 8, 64),
			strconv.FormatFloat(s.Drag.Y, 'g', 8, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PlotTrajectory saves a side view of the trajectory with the hub, the threshold and the aperture.
// The image format is deduced from the extension of path.
func PlotTrajectory(path string, p LaunchParameters, g TargetGeometry, samples []TrajectorySample) error {
	pl := plot.New()
	pl.Title.Text = p.String()
	pl.X.Label.Text = "x (in)"
	pl.Y.Label.Text = "y (in)"

	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i].X = s.Position.X
		pts[i].Y = s.Position.Y
	}
	traj, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	traj.LineStyle.Width = vg.Points(2)
	traj.LineStyle.Color = color.RGBA{R: 220, A: 255}

	near := g.NearSide(p.Delta)
	hub, err := plotter.NewLine(plotter.XYs{
		{X: near, Y: 0}, {X: near, Y: g.HubHeight}, {X: near + g.HubWidth, Y: g.HubHeight}, {X: near + g.HubWidth, Y: 0},
	})
	if err != nil {
		return err
	}
	hub.LineStyle.Color = color.Gray{Y: 128}

	left := g.ApertureLeft(p.Delta)
	aperture, err := plotter.NewLine(plotter.XYs{{X: left, Y: g.Threshold}, {X: left + g.HopperWidth, Y: g.Threshold}})
	if err != nil {
		return err
	}
	aperture.LineStyle.Width = vg.Points(3)
	aperture.LineStyle.Color = color.RGBA{G: 160, A: 255}

	threshold, err := plotter.NewLine(plotter.XYs{{X: 0, Y: g.Threshold}, {X: near + g.HubWidth, Y: g.Threshold}})
	if err != nil {
		return err
	}
	threshold.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	pl.Add(plotter.NewGrid(), hub, threshold, aperture, traj)
	pl.Legend.Add("trajectory", traj)
	pl.Legend.Add("aperture", aperture)
	pl.Legend.Top = true
	return pl.Save(6*vg.Inch, 6*vg.Inch, path)
}
