package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

type ffprobeStream struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

// ProbeVideoDimensions shells out to the ffprobe binary to read the dimensions of the first video stream that
// reports them, matching the original's ffprobe::ffprobe(&path).streams loop. No Go wrapper library for ffprobe
// exists anywhere in the reference corpus, so this invokes the CLI directly via os/exec, same as the original.
func ProbeVideoDimensions(ctx context.Context, path string) (width, height int, ok bool, err error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, 0, false, fmt.Errorf("ffprobe: %w: %s", err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return 0, 0, false, fmt.Errorf("parse ffprobe output: %w", err)
	}
	for _, s := range out.Streams {
		if s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, true, nil
		}
	}
	return 0, 0, false, nil
}
