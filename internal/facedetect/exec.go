package facedetect

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"

	"media-catalog/internal/logging"
)

// ExecBackend runs an external inference helper once per image.
//
// The helper receives on stdin one JSON header line followed by the tensor as
// little-endian float32 values, and writes an Output as JSON on stdout.
type ExecBackend struct {
	// Command is the helper executable.
	Command string
	// Args are passed to the helper unchanged.
	Args []string
	// Env is appended to the current environment.
	Env []string
}

type execHeader struct {
	Height   int    `json:"height"`
	Width    int    `json:"width"`
	Channels int    `json:"channels"`
	Order    string `json:"order"`
	Dtype    string `json:"dtype"`
	Params
}

// Run implements Backend.
func (e *ExecBackend) Run(ctx context.Context, input Tensor, params Params) (Output, error) {
	var out Output

	cmd := exec.CommandContext(ctx, e.Command, e.Args...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return out, fmt.Errorf("failed to open detector stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return out, fmt.Errorf("failed to start detector %s: %w", e.Command, err)
	}

	writeErr := writeRequest(stdin, input, params)
	closeErr := stdin.Close()

	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			logging.Debug("detector stderr: %s", msg)
			return out, fmt.Errorf("detector exited: %w: %s", err, msg)
		}
		return out, fmt.Errorf("detector exited: %w", err)
	}
	if writeErr != nil {
		return out, fmt.Errorf("failed to write detector input: %w", writeErr)
	}
	if closeErr != nil {
		return out, fmt.Errorf("failed to write detector input: %w", closeErr)
	}

	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return out, fmt.Errorf("invalid detector output: %w", err)
	}
	return out, nil
}

func writeRequest(w io.Writer, input Tensor, params Params) error {
	bw := bufio.NewWriterSize(w, 64*1024)

	header, err := json.Marshal(execHeader{
		Height:   input.Height,
		Width:    input.Width,
		Channels: 3,
		Order:    "bgr",
		Dtype:    "float32le",
		Params:   params,
	})
	if err != nil {
		return err
	}
	if _, err := bw.Write(append(header, '\n')); err != nil {
		return err
	}

	var buf [4]byte
	for _, v := range input.Data {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
