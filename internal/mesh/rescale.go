package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fluidpower-lab/pistonsweep/internal/events"
)

// nodeMarker opens a node block; any other marker-style line closes it.
const (
	nodeMarker   = "*NODE"
	markerPrefix = "*"
)

// nodeFormat keeps the destination file consumable by the downstream
// solver: left-justified id, fixed-width exponential coordinates.
const nodeFormat = "%-10s, %20.13E, %20.13E, %20.13E\n"

// RescaleFile loads the scalar config at path and runs the rescale.
func RescaleFile(configPath string, sink events.Sink) error {
	cfg, err := LoadScalarConfig(configPath)
	if err != nil {
		return err
	}
	return Rescale(cfg, sink)
}

// Rescale streams the source mesh into the destination, remapping the
// Z-coordinate of every well-formed node record inside node blocks. All
// other content, including malformed node-block lines, is copied
// byte-for-byte.
func Rescale(cfg *ScalarConfig, sink events.Sink) error {
	src, err := os.Open(cfg.Source)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source mesh not found: %s", cfg.Source)
		}
		return fmt.Errorf("open source mesh %s: %w", cfg.Source, err)
	}
	defer src.Close()

	dst, err := os.Create(cfg.Dest)
	if err != nil {
		return fmt.Errorf("create destination mesh %s: %w", cfg.Dest, err)
	}

	nodes, err := rescaleStream(bufio.NewReaderSize(src, 1<<20), bufio.NewWriterSize(dst, 1<<20), cfg)
	if err != nil {
		dst.Close()
		return fmt.Errorf("rescale %s: %w", cfg.Source, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close destination mesh %s: %w", cfg.Dest, err)
	}

	sink.Emit(events.Event{
		Stage:   events.StageRescale,
		Level:   events.LevelInfo,
		Item:    cfg.Dest,
		Message: fmt.Sprintf("rescaled %d node records", nodes),
	})
	return nil
}

func rescaleStream(r *bufio.Reader, w *bufio.Writer, cfg *ScalarConfig) (int, error) {
	inNodeBlock := false
	nodes := 0

	for {
		line, readErr := r.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nodes, readErr
		}
		if line != "" {
			trimmed := strings.TrimSpace(line)

			switch {
			case strings.HasPrefix(trimmed, nodeMarker):
				inNodeBlock = true
				if _, err := w.WriteString(line); err != nil {
					return nodes, err
				}
			case inNodeBlock && strings.HasPrefix(trimmed, markerPrefix):
				inNodeBlock = false
				if _, err := w.WriteString(line); err != nil {
					return nodes, err
				}
			case inNodeBlock && trimmed != "":
				ok, err := writeNode(w, line, trimmed, cfg)
				if err != nil {
					return nodes, err
				}
				if ok {
					nodes++
				}
			default:
				if _, err := w.WriteString(line); err != nil {
					return nodes, err
				}
			}
		}
		if readErr == io.EOF {
			break
		}
	}
	return nodes, w.Flush()
}

// writeNode parses one node-block line and writes the transformed record.
// Lines that do not split into exactly 4 fields, or whose coordinates do
// not parse, are written unchanged; that is pass-through, not an error.
func writeNode(w *bufio.Writer, raw, trimmed string, cfg *ScalarConfig) (bool, error) {
	parts := strings.Split(trimmed, ",")
	if len(parts) != 4 {
		_, err := w.WriteString(raw)
		return false, err
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	x, errX := strconv.ParseFloat(parts[1], 64)
	y, errY := strconv.ParseFloat(parts[2], 64)
	z, errZ := strconv.ParseFloat(parts[3], 64)
	if errX != nil || errY != nil || errZ != nil {
		_, err := w.WriteString(raw)
		return false, err
	}

	_, err := fmt.Fprintf(w, nodeFormat, parts[0], x, y, remapZ(z, cfg))
	return true, err
}

// remapZ applies the 3-segment piecewise-linear transform:
// below z1 unchanged, z1..z2 interpolated onto z1new..z2new, above z2
// shifted by the z2 displacement.
func remapZ(z float64, cfg *ScalarConfig) float64 {
	switch {
	case z <= cfg.Z1:
		return z
	case z <= cfg.Z2:
		if cfg.Z2 == cfg.Z1 {
			return cfg.Z1New
		}
		return cfg.Z1New + (z-cfg.Z1)*(cfg.Z2New-cfg.Z1New)/(cfg.Z2-cfg.Z1)
	default:
		return z + (cfg.Z2New - cfg.Z2)
	}
}
