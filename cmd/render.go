package cmd

import (
	"bytes"
	"fmt"
	"image/png"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/planetar/domemaster/renderer"
	"github.com/planetar/domemaster/scene"
	"github.com/planetar/domemaster/tracer"
	"github.com/planetar/domemaster/tracer/cpu"
	"github.com/planetar/domemaster/types"
	"github.com/urfave/cli"
)

// Render a dome master frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := renderer.Options{
		FrameW:                 uint32(ctx.Int("width")),
		FrameH:                 uint32(ctx.Int("height")),
		Stereo:                 ctx.Bool("stereo"),
		Frames:                 uint32(ctx.Int("frames")),
		SamplesPerPixel:        uint32(ctx.Int("spp")),
		MaxTransparencyBounces: uint32(ctx.Int("transparency-bounces")),
		Exposure:               float32(ctx.Float64("exposure")),
		NumTracers:             ctx.Int("num-tracers"),
	}

	// Stereo frames stack the two eye sub-images over/under.
	if opts.Stereo {
		opts.FrameH *= 2
	}

	sc, err := setupScene(ctx)
	if err != nil {
		return err
	}

	pipeline := cpu.DefaultPipeline()

	r, err := renderer.NewDefault(sc, tracer.PerfectScheduler(), pipeline, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	logger.Noticef("rendering %dx%d dome master (%d frame(s), %d spp)", opts.FrameW, opts.FrameH, opts.Frames, opts.SamplesPerPixel)
	if err = r.Render(); err != nil {
		return err
	}

	// Export PNG
	imgFile := ctx.String("out")
	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	if err = png.Encode(f, r.Frame()); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", imgFile)

	displayFrameStats(r.Stats())

	return nil
}

// Build the dome scene from the cli arguments. The camera looks at the dome
// zenith; the environment is either the alignment test grid or a sky
// gradient.
func setupScene(ctx *cli.Context) (*scene.Scene, error) {
	camera := scene.NewCamera(float32(ctx.Float64("fov")))
	camera.LookAt = types.XYZ(0, 1, 0)
	camera.Up = types.XYZ(0, 0, -1)
	camera.EyeSeparation = float32(ctx.Float64("eye-sep"))
	camera.ApertureRadius = float32(ctx.Float64("aperture"))
	camera.FocalDist = float32(ctx.Float64("focal-dist"))
	camera.Update()

	sc := &scene.Scene{Camera: camera}

	switch env := ctx.String("env"); env {
	case "grid":
		sc.Trace = scene.AlignmentGrid(camera.W, float32(ctx.Float64("grid-step")))
	case "gradient":
		sc.Trace = scene.GradientEnv(camera.W, types.XYZ(0.9, 0.5, 0.2), types.XYZ(0.05, 0.1, 0.35))
	default:
		return nil, fmt.Errorf("unsupported environment %q", env)
	}

	return sc, nil
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Block height", "% of frame", "Render time"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			fmt.Sprintf("%s", stat.RenderTime),
		})
	}
	table.SetFooter([]string{"", "", "TOTAL", fmt.Sprintf("%s", stats.RenderTime)})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}
