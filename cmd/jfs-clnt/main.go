package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/go-jfs/client"
	"github.com/mit-pdos/go-jfs/fsrpc"
	"github.com/mit-pdos/go-jfs/serve"
)

func main() {
	app := &cli.App{
		Name:  "jfs-clnt",
		Usage: "talk to a jfsd server",
		Flags: []cli.Flag{&cli.StringFlag{
			Name:    "server",
			Value:   "localhost",
			Usage:   "server address; without a port the portmapper is asked",
			EnvVars: []string{"JFS_SERVER"},
		}},
		Commands: []*cli.Command{{
			Name:      "cat",
			Usage:     "copy a file to stdout",
			ArgsUsage: "path",
			Action: withClient(func(c *client.Client, ctx *cli.Context) error {
				f, err := open(c, ctx, serve.O_RDONLY)
				if err != nil {
					return err
				}
				buf := make([]byte, 4096)
				for {
					n, err := f.Read(ctx.Context, buf)
					if err != nil {
						return err
					}
					if n == 0 {
						break
					}
					os.Stdout.Write(buf[:n])
				}
				return f.Close(ctx.Context)
			}),
		}, {
			Name:      "put",
			Usage:     "copy stdin into a file, creating it",
			ArgsUsage: "path",
			Action: withClient(func(c *client.Client, ctx *cli.Context) error {
				f, err := open(c, ctx, serve.O_WRONLY|serve.O_CREAT|serve.O_TRUNC)
				if err != nil {
					return err
				}
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				if _, err := f.Write(ctx.Context, data); err != nil {
					return err
				}
				return f.Close(ctx.Context)
			}),
		}, {
			Name:      "ls",
			Usage:     "list a directory",
			ArgsUsage: "[path]",
			Action: withClient(func(c *client.Client, ctx *cli.Context) error {
				path := "/"
				if ctx.Args().Present() {
					path = ctx.Args().First()
				}
				names, err := c.List(ctx.Context, path)
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Println(n)
				}
				return nil
			}),
		}, {
			Name:      "mkdir",
			Usage:     "create a directory",
			ArgsUsage: "path",
			Action: withClient(func(c *client.Client, ctx *cli.Context) error {
				f, err := open(c, ctx, serve.O_CREAT|serve.O_EXCL|serve.O_MKDIR)
				if err != nil {
					return err
				}
				return f.Close(ctx.Context)
			}),
		}, {
			Name:      "rm",
			Usage:     "remove a file or empty directory",
			ArgsUsage: "path",
			Action: withClient(func(c *client.Client, ctx *cli.Context) error {
				if ctx.Args().Len() != 1 {
					return cli.Exit("rm takes one path", 2)
				}
				return c.Remove(ctx.Context, ctx.Args().First())
			}),
		}, {
			Name:      "truncate",
			Usage:     "set a file's size",
			ArgsUsage: "path size",
			Action: withClient(func(c *client.Client, ctx *cli.Context) error {
				if ctx.Args().Len() != 2 {
					return cli.Exit("truncate takes a path and a size", 2)
				}
				n, err := strconv.ParseUint(ctx.Args().Get(1), 10, 64)
				if err != nil {
					return err
				}
				f, err := c.Open(ctx.Context, ctx.Args().First(), serve.O_WRONLY)
				if err != nil {
					return fmt.Errorf("%s: %w", ctx.Args().First(), err)
				}
				if err := f.SetSize(ctx.Context, n); err != nil {
					return err
				}
				return f.Close(ctx.Context)
			}),
		}, {
			Name:      "stat",
			Usage:     "print name, size and type",
			ArgsUsage: "path",
			Action: withClient(func(c *client.Client, ctx *cli.Context) error {
				f, err := open(c, ctx, serve.O_RDONLY)
				if err != nil {
					return err
				}
				st, err := f.Stat(ctx.Context)
				if err != nil {
					return err
				}
				kind := "file"
				if st.IsDir {
					kind = "dir"
				}
				fmt.Printf("%s\t%d\t%s\n", st.Name, st.Size, kind)
				return f.Close(ctx.Context)
			}),
		}, {
			Name:  "sync",
			Usage: "flush everything to disk",
			Action: withClient(func(c *client.Client, ctx *cli.Context) error {
				return c.Sync(ctx.Context)
			}),
		}},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withClient(f func(c *client.Client, ctx *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		rc, err := fsrpc.Dial(ctx.String("server"))
		if err != nil {
			return err
		}
		return f(client.New(rc), ctx)
	}
}

func open(c *client.Client, ctx *cli.Context, mode uint32) (*client.File, error) {
	if ctx.Args().Len() != 1 {
		return nil, cli.Exit(ctx.Command.Name+" takes one path", 2)
	}
	path := ctx.Args().First()
	f, err := c.Open(ctx.Context, path, mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
