// Package dataset supplies rectified stereo pairs from a KITTI-style
// directory tree.
//
// A split directory contains image_2/ (left camera) and image_3/ (right
// camera) with matching file names, and optionally disp_noc_0/ with 16-bit
// ground-truth disparity maps.
package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kaskra/MLGV/internal/grid"
)

const (
	leftDir        = "image_2"
	rightDir       = "image_3"
	groundTruthDir = "disp_noc_0"

	// referenceSuffix marks the first frame of each KITTI scene-flow pair.
	referenceSuffix = "_10"
)

// DefaultSplit is the split joined onto a KITTI 2015 subset root.
var DefaultSplit = filepath.Join("data_scene_flow", "testing")

var (
	// ErrNoFrames is returned when the split contains no usable pairs.
	ErrNoFrames = errors.New("no stereo pairs found")
	// ErrIndexOutOfRange is returned for frame indices outside [0, Len()).
	ErrIndexOutOfRange = errors.New("frame index out of range")
)

// Options adjusts how frames are loaded.
type Options struct {
	// Scale downsamples every frame when 0 < Scale < 1. Zero or one keeps the
	// native resolution.
	Scale float64
}

// Pair is one rectified left/right grayscale frame.
type Pair struct {
	Index int
	Name  string
	Left  *grid.Image[uint8]
	Right *grid.Image[uint8]
}

// KITTI indexes the stereo pairs of a split directory.
type KITTI struct {
	dir   string
	names []string
	opts  Options
	hasGT bool
}

// Open locates the split directory under root and indexes its pairs. root may
// be the split itself or a KITTI 2015 subset root containing DefaultSplit.
func Open(root string, opts Options) (*KITTI, error) {
	if opts.Scale < 0 || opts.Scale > 1 {
		return nil, fmt.Errorf("scale must be in (0, 1], got %g", opts.Scale)
	}

	dir, err := resolveSplit(root)
	if err != nil {
		return nil, err
	}

	names, err := pairNames(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}

	_, statErr := os.Stat(filepath.Join(dir, groundTruthDir))
	k := &KITTI{
		dir:   dir,
		names: names,
		opts:  opts,
		hasGT: statErr == nil,
	}

	slog.Info("Opened dataset", "dir", dir, "frames", len(names), "ground_truth", k.hasGT)
	return k, nil
}

func resolveSplit(root string) (string, error) {
	candidates := []string{root, filepath.Join(root, DefaultSplit)}
	for _, dir := range candidates {
		info, err := os.Stat(filepath.Join(dir, leftDir))
		if err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no %s directory under %s or %s", leftDir, root, filepath.Join(root, DefaultSplit))
}

// pairNames lists files present in both camera directories. Reference frames
// (*_10) are preferred; other images are used only when none exist.
func pairNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, leftDir))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", leftDir, err)
	}

	var reference, all []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !supportedExts[ext] {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, rightDir, name)); err != nil {
			slog.Debug("Skipping frame without right image", "name", name)
			continue
		}
		all = append(all, name)
		if strings.HasSuffix(strings.TrimSuffix(name, filepath.Ext(name)), referenceSuffix) {
			reference = append(reference, name)
		}
	}

	names := reference
	if len(names) == 0 {
		names = all
	}
	sort.Strings(names)
	return names, nil
}

// Dir returns the resolved split directory.
func (k *KITTI) Dir() string {
	return k.dir
}

// Len returns the number of pairs.
func (k *KITTI) Len() int {
	return len(k.names)
}

// Name returns the file name of frame i.
func (k *KITTI) Name(i int) string {
	return k.names[i]
}

// HasGroundTruth reports whether the split has a ground-truth directory.
func (k *KITTI) HasGroundTruth() bool {
	return k.hasGT
}

func (k *KITTI) scaled() bool {
	return k.opts.Scale > 0 && k.opts.Scale < 1
}

// Pair loads frame i as grayscale images of equal shape.
func (k *KITTI) Pair(i int) (Pair, error) {
	if i < 0 || i >= len(k.names) {
		return Pair{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	name := k.names[i]

	left, err := LoadGray(filepath.Join(k.dir, leftDir, name))
	if err != nil {
		return Pair{}, fmt.Errorf("failed to load left image: %w", err)
	}
	right, err := LoadGray(filepath.Join(k.dir, rightDir, name))
	if err != nil {
		return Pair{}, fmt.Errorf("failed to load right image: %w", err)
	}
	if left.Width != right.Width || left.Height != right.Height {
		return Pair{}, fmt.Errorf("frame %s: left is %dx%d but right is %dx%d",
			name, left.Width, left.Height, right.Width, right.Height)
	}

	if k.scaled() {
		left = downscaleGray(left, k.opts.Scale)
		right = downscaleGray(right, k.opts.Scale)
	}

	return Pair{Index: i, Name: name, Left: left, Right: right}, nil
}

// GroundTruth loads the ground-truth disparity of frame i. The boolean is
// false when the frame has no ground truth.
func (k *KITTI) GroundTruth(i int) (*grid.Image[float32], bool, error) {
	if i < 0 || i >= len(k.names) {
		return nil, false, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	if !k.hasGT {
		return nil, false, nil
	}

	path := filepath.Join(k.dir, groundTruthDir, k.names[i])
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, false, nil
	}

	var (
		gt  *grid.Image[float32]
		err error
	)
	if k.scaled() {
		gt, err = downscaleDisparity(path, k.opts.Scale)
	} else {
		gt, err = LoadDisparity(path)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load ground truth: %w", err)
	}
	return gt, true, nil
}
