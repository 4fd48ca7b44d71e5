package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world"
	"github.com/annel0/voxel-core/internal/world/block"
)

// Формат секции до сжатия:
//
//	magic "VXS" | version u8 | x,y,z varint | count u16 | count * (index u16, id u16, r,g,b u8)
//
// Блоки идут в порядке линейного индекса секции.
const (
	codecMagic   = "VXS"
	codecVersion = 1
)

// ErrCorruptSection возвращается, если сохранённые данные секции не читаются
var ErrCorruptSection = errors.New("повреждённые данные секции")

// Codec кодирует секции в сжатый zstd бинарный формат
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec создаёт кодек. EncodeAll/DecodeAll можно вызывать из нескольких горутин.
func NewCodec() (*Codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	return &Codec{encoder: encoder, decoder: decoder}, nil
}

// Close освобождает ресурсы zstd
func (c *Codec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}

// Encode сериализует секцию. Пустая секция тоже кодируется: count = 0.
func (c *Codec) Encode(s *world.Section) []byte {
	var buf bytes.Buffer
	buf.WriteString(codecMagic)
	buf.WriteByte(codecVersion)

	var tmp [binary.MaxVarintLen64]byte
	for _, v := range []int{s.Position.X, s.Position.Y, s.Position.Z} {
		n := binary.PutVarint(tmp[:], int64(v))
		buf.Write(tmp[:n])
	}

	binary.Write(&buf, binary.LittleEndian, uint16(s.NonAirBlockSize()))

	s.ForEachBlock(func(index int, b world.Block) bool {
		r, g, bl := b.Color.RGB8()
		binary.Write(&buf, binary.LittleEndian, uint16(index))
		binary.Write(&buf, binary.LittleEndian, uint16(b.ID))
		buf.Write([]byte{r, g, bl})
		return true
	})

	return c.encoder.EncodeAll(buf.Bytes(), nil)
}

// Decode восстанавливает секцию из сжатых данных. Блоки ставятся через SetBlockAt,
// поэтому счётчик секции остаётся согласованным.
func (c *Codec) Decode(data []byte) (*world.Section, error) {
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSection, err)
	}

	r := bytes.NewReader(raw)
	header := make([]byte, len(codecMagic)+1)
	if _, err := r.Read(header); err != nil || string(header[:len(codecMagic)]) != codecMagic {
		return nil, fmt.Errorf("%w: неверная сигнатура", ErrCorruptSection)
	}
	if header[len(codecMagic)] != codecVersion {
		return nil, fmt.Errorf("%w: неподдерживаемая версия %d", ErrCorruptSection, header[len(codecMagic)])
	}

	var coords [3]int64
	for i := range coords {
		if coords[i], err = binary.ReadVarint(r); err != nil {
			return nil, fmt.Errorf("%w: координаты секции: %v", ErrCorruptSection, err)
		}
	}
	pos := vec.Vec3{X: int(coords[0]), Y: int(coords[1]), Z: int(coords[2])}

	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: число блоков: %v", ErrCorruptSection, err)
	}
	if int(count) > world.SectionVolume {
		return nil, fmt.Errorf("%w: %d блоков больше объёма секции", ErrCorruptSection, count)
	}

	s := world.NewEmptySection(pos, world.ChunkWorldPosition(vec.Vec2{X: pos.X, Z: pos.Z}))
	for i := 0; i < int(count); i++ {
		var entry struct {
			Index uint16
			ID    uint16
			R     uint8
			G     uint8
			B     uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &entry); err != nil {
			return nil, fmt.Errorf("%w: блок %d: %v", ErrCorruptSection, i, err)
		}
		if int(entry.Index) >= world.SectionVolume {
			return nil, fmt.Errorf("%w: индекс %d вне секции", ErrCorruptSection, entry.Index)
		}

		x, y, z := world.IndexToLocal(int(entry.Index))
		s.SetBlockAt(x, y, z, block.BlockID(entry.ID), block.RGB8(entry.R, entry.G, entry.B), true)
	}

	return s, nil
}
