package imagemin_test

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/testutil"
	"github.com/vk/assetgrid/modules/imagemin"
)

func gradient() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, gradient()))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(), &jpeg.Options{Quality: 100}))
	return buf.Bytes()
}

func encodeGIF(t *testing.T) []byte {
	t.Helper()
	src := gradient()
	img := image.NewPaletted(src.Bounds(), palette.Plan9)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, src.At(x, y))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestOptimize(t *testing.T) {
	t.Parallel()

	t.Run("png shrinks", func(t *testing.T) {
		t.Parallel()
		in := encodePNG(t)
		out, err := imagemin.Optimize(in, imagemin.PNG, 7, 90)
		require.NoError(t, err)
		require.Less(t, len(out), len(in))
		img, err := png.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		require.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())
	})

	t.Run("jpeg quality", func(t *testing.T) {
		t.Parallel()
		in := encodeJPEG(t)
		out, err := imagemin.Optimize(in, imagemin.JPEG, 3, 40)
		require.NoError(t, err)
		require.Less(t, len(out), len(in))
	})

	t.Run("never grows", func(t *testing.T) {
		t.Parallel()
		in := encodeJPEG(t)
		out, err := imagemin.Optimize(in, imagemin.JPEG, 3, 100)
		require.NoError(t, err)
		require.LessOrEqual(t, len(out), len(in))
	})

	t.Run("gif", func(t *testing.T) {
		t.Parallel()
		in := encodeGIF(t)
		out, err := imagemin.Optimize(in, imagemin.GIF, 3, 90)
		require.NoError(t, err)
		require.LessOrEqual(t, len(out), len(in))
		_, err = gif.DecodeAll(bytes.NewReader(out))
		require.NoError(t, err)
	})

	t.Run("corrupt", func(t *testing.T) {
		t.Parallel()
		_, err := imagemin.Optimize([]byte("not a png"), imagemin.PNG, 3, 90)
		require.ErrorContains(t, err, "decoding png")
	})
}

func TestFormatOf(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		want   imagemin.Format
		wantOK bool
	}{
		{"a.png", imagemin.PNG, true},
		{"b/c.JPG", imagemin.JPEG, true},
		{"d.jpeg", imagemin.JPEG, true},
		{"e.gif", imagemin.GIF, true},
		{"f.svg", "", false},
	}
	for _, tc := range testCases {
		got, ok := imagemin.FormatOf(tc.name)
		require.Equal(t, tc.wantOK, ok, tc.name)
		require.Equal(t, tc.want, got, tc.name)
	}
}

const imageGrid = `
task "imagemin" {
  target "dynamic" {
    files {
      expand = true
      cwd    = "img/"
      src    = ["**/*.{png,jpg,gif}"]
      dest   = "img/build/"
    }
  }
}
`

func TestImagemin_ExpandsIntoBuildDir(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	pngData := encodePNG(t)
	files := map[string]string{
		"img/logo.png":        string(pngData),
		"img/photos/hero.jpg": string(encodeJPEG(t)),
		"img/anim/spin.gif":   string(encodeGIF(t)),
		"img/readme.txt":      "not an image",
	}
	env := testutil.NewTaskEnv(t, imageGrid, files, []registry.Module{&imagemin.Module{}}, testutil.WithWorkers(3))

	// --- Act ---
	err := env.Run("imagemin")

	// --- Assert ---
	require.NoError(t, err)
	for _, name := range []string{"img/build/logo.png", "img/build/photos/hero.jpg", "img/build/anim/spin.gif"} {
		require.True(t, env.Workspace.Exists(name), name)
	}
	require.False(t, env.Workspace.Exists("img/build/readme.txt"))
	require.Less(t, len(env.Read(t, "img/build/logo.png")), len(pngData))
	require.Contains(t, env.Output.String(), ">> Minified 3 images (saved ")
}

func TestImagemin_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		options string
		files   map[string]string
		wantErr string
	}{
		{"level too high", "optimization_level = 8", nil, "optimization_level must be between 0 and 7, got 8"},
		{"quality zero", "quality = 0", nil, "quality must be between 1 and 100, got 0"},
		{"corrupt image", "", map[string]string{"img/bad.png": "garbage"}, "img/bad.png: decoding png"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			grid := `
task "imagemin" {
  options {
    ` + tc.options + `
  }
  target "dynamic" {
    files {
      expand = true
      cwd    = "img/"
      src    = ["*.png"]
      dest   = "img/build/"
    }
  }
}
`
			env := testutil.NewTaskEnv(t, grid, tc.files, []registry.Module{&imagemin.Module{}})

			// --- Act ---
			err := env.Run("imagemin:dynamic")

			// --- Assert ---
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}
