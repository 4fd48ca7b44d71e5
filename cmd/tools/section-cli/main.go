package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/annel0/voxel-core/internal/storage"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func newApp(out io.Writer) *cli.App {
	dbFlag := &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Value:   "data/world",
		Usage:   "каталог BadgerDB с секциями",
		EnvVars: []string{"VOXEL_DB"},
	}

	return &cli.App{
		Name:      "section-cli",
		Usage:     "инспекция секций мира voxel-core",
		Writer:    out,
		ErrWriter: out,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "линейный индекс блока по локальным координатам или обратно",
				ArgsUsage: "<x> <y> <z> | <index>",
				Action: func(c *cli.Context) error {
					return runIndex(c.App.Writer, c.Args().Slice())
				},
			},
			{
				Name:      "inspect",
				Usage:     "декодировать сохранённую секцию",
				ArgsUsage: "<sx> <sy> <sz>",
				Flags: []cli.Flag{
					dbFlag,
					&cli.BoolFlag{Name: "blocks", Usage: "вывести каждый блок"},
				},
				Action: func(c *cli.Context) error {
					args, err := parseInts(c.Args().Slice(), 3)
					if err != nil {
						return err
					}
					pos := vec.Vec3{X: args[0], Y: args[1], Z: args[2]}
					return withStore(c.String("db"), func(store *storage.BadgerSectionStore, codec *storage.Codec) error {
						return runInspect(c.Context, c.App.Writer, store, codec, pos, c.Bool("blocks"))
					})
				},
			},
			{
				Name:  "top",
				Usage: "секции с наибольшим числом блоков",
				Flags: []cli.Flag{
					dbFlag,
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "сколько секций вывести"},
				},
				Action: func(c *cli.Context) error {
					return withStore(c.String("db"), func(store *storage.BadgerSectionStore, codec *storage.Codec) error {
						return runTop(c.Context, c.App.Writer, store, codec, c.Int("limit"))
					})
				},
			},
		},
	}
}

func withStore(path string, fn func(*storage.BadgerSectionStore, *storage.Codec) error) error {
	store, err := storage.NewBadgerSectionStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	codec, err := storage.NewCodec()
	if err != nil {
		return err
	}
	defer codec.Close()

	return fn(store, codec)
}

func parseInts(args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("ожидается %d аргумента, получено %d", n, len(args))
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("аргумент %q: %w", a, err)
		}
		out[i] = v
	}
	return out, nil
}

func runIndex(out io.Writer, args []string) error {
	switch len(args) {
	case 1:
		v, err := parseInts(args, 1)
		if err != nil {
			return err
		}
		if v[0] < 0 || v[0] >= world.SectionVolume {
			return fmt.Errorf("индекс %d вне секции [0, %d)", v[0], world.SectionVolume)
		}
		x, y, z := world.IndexToLocal(v[0])
		fmt.Fprintf(out, "%d -> x=%d y=%d z=%d\n", v[0], x, y, z)
	case 3:
		v, err := parseInts(args, 3)
		if err != nil {
			return err
		}
		if !world.InBounds(v[0], v[1], v[2]) {
			return fmt.Errorf("координаты (%d,%d,%d) вне секции", v[0], v[1], v[2])
		}
		fmt.Fprintf(out, "x=%d y=%d z=%d -> %d\n", v[0], v[1], v[2], world.LocalIndex(v[0], v[1], v[2]))
	default:
		return fmt.Errorf("нужен индекс или три координаты")
	}
	return nil
}

func runInspect(ctx context.Context, out io.Writer, store storage.SectionStore, codec *storage.Codec, pos vec.Vec3, verbose bool) error {
	payload, err := store.Get(ctx, pos)
	if err != nil {
		return fmt.Errorf("секция %s: %w", storage.SectionKey(pos), err)
	}
	section, err := codec.Decode(payload)
	if err != nil {
		return fmt.Errorf("секция %s: %w", storage.SectionKey(pos), err)
	}

	fmt.Fprintf(out, "%s: %d байт, блоков %d\n", storage.SectionKey(pos), len(payload), section.NonAirBlockSize())

	counts := make(map[string]int)
	section.ForEachBlock(func(index int, b world.Block) bool {
		counts[b.ID.String()]++
		if verbose {
			x, y, z := world.IndexToLocal(index)
			r, g, bl := b.Color.RGB8()
			fmt.Fprintf(out, "  [%4d] (%2d,%2d,%2d) %-8s #%02x%02x%02x\n", index, x, y, z, b.ID, r, g, bl)
		}
		return true
	})

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-8s %d\n", name, counts[name])
	}
	return nil
}

type sectionSize struct {
	key    string
	blocks int
}

func runTop(ctx context.Context, out io.Writer, store *storage.BadgerSectionStore, codec *storage.Codec, limit int) error {
	keys, err := store.Keys(ctx)
	if err != nil {
		return err
	}

	sizes := make([]sectionSize, 0, len(keys))
	for _, key := range keys {
		pos, err := storage.ParseSectionKey(key)
		if err != nil {
			return err
		}
		payload, err := store.Get(ctx, pos)
		if err != nil {
			return err
		}
		section, err := codec.Decode(payload)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		sizes = append(sizes, sectionSize{key: key, blocks: section.NonAirBlockSize()})
	}

	sort.Slice(sizes, func(i, j int) bool {
		if sizes[i].blocks != sizes[j].blocks {
			return sizes[i].blocks > sizes[j].blocks
		}
		return sizes[i].key < sizes[j].key
	})
	if limit > 0 && len(sizes) > limit {
		sizes = sizes[:limit]
	}

	fmt.Fprintf(out, "секций в базе: %d\n", len(keys))
	for _, s := range sizes {
		fmt.Fprintf(out, "%-24s %5d\n", s.key, s.blocks)
	}
	return nil
}
