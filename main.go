package main

import (
	"os"

	"github.com/planetar/domemaster/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "domemaster"
	app.Usage = "render fulldome frames for planetarium projection"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a dome master frame",
			Description: `
Render a 180 degree equidistant fisheye (dome master) frame. With --stereo
the output frame stacks the left eye over the right eye at double height.
Anti-aliasing and depth of field samples accumulate progressively across
--frames passes.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 1024,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 1024,
					Usage: "frame height (per eye for stereo output)",
				},
				cli.IntFlag{
					Name:  "spp",
					Value: 4,
					Usage: "samples per pixel per frame",
				},
				cli.IntFlag{
					Name:  "frames",
					Value: 1,
					Usage: "number of progressive frames to accumulate",
				},
				cli.Float64Flag{
					Name:  "exposure",
					Value: 1.0,
					Usage: "camera exposure for tone-mapping",
				},
				cli.Float64Flag{
					Name:  "fov",
					Value: 180.0,
					Usage: "dome field of view in degrees",
				},
				cli.BoolFlag{
					Name:  "stereo",
					Usage: "render an over/under stereo pair",
				},
				cli.Float64Flag{
					Name:  "eye-sep",
					Value: 0.065,
					Usage: "stereo eye separation in world units",
				},
				cli.Float64Flag{
					Name:  "aperture",
					Value: 0.0,
					Usage: "thin lens aperture radius; 0 disables depth of field",
				},
				cli.Float64Flag{
					Name:  "focal-dist",
					Value: 5.0,
					Usage: "thin lens focal distance",
				},
				cli.IntFlag{
					Name:  "transparency-bounces",
					Value: 8,
					Usage: "max transparency bounces per camera ray",
				},
				cli.IntFlag{
					Name:  "num-tracers",
					Value: 1,
					Usage: "number of cpu tracers to attach",
				},
				cli.StringFlag{
					Name:  "env",
					Value: "grid",
					Usage: "environment to trace: grid or gradient",
				},
				cli.Float64Flag{
					Name:  "grid-step",
					Value: 15.0,
					Usage: "angular step of the alignment grid in degrees",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			},
			Action: cmd.RenderFrame,
		},
	}

	app.Run(os.Args)
}
