package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	visionapi "cloud.google.com/go/vision/apiv1"
	"github.com/joho/godotenv"
	"github.com/ridge/must/v2"
	"github.com/sunshineplan/imgprep"
	"github.com/sunshineplan/imgprep/recognizer/tesseract"
	"github.com/sunshineplan/imgprep/recognizer/vision"
	"github.com/sunshineplan/imgprep/sink/gcs"
	"github.com/sunshineplan/progressbar"
	"github.com/sunshineplan/utils/log"
	"github.com/sunshineplan/workers"
	"github.com/vharitonsky/iniflags"
	"google.golang.org/api/option"
)

var (
	src         = flag.String("src", "", "")
	dst         = flag.String("dst", "output", "")
	force       = flag.Bool("force", false, "")
	engine      = flag.String("engine", "tesseract", "")
	lang        = flag.String("lang", "eng", "")
	credentials = flag.String("credentials", "", "")
	bucket      = flag.String("bucket", "", "")
	prefix      = flag.String("prefix", "", "")
	format      = flag.String("format", "jpg", "")
	quality     = flag.Int("quality", imgprep.DefaultQuality, "")
	font        = flag.String("font", "", "")
	fontSize    = flag.Float64("fontsize", 24, "")
	procs       = flag.Int("procs", 0, "")
	width       = flag.Int("width", 0, "")
	height      = flag.Int("height", 0, "")
	group       = flag.Bool("group", false, "")
	worker      = flag.Int("worker", 5, "")
	debug       = flag.Bool("debug", false, "")
)

// Flags that map onto preprocessing settings. Only flags given on the
// command line or in config.ini are passed on, so the rest keep their
// defaults or come from the environment.
var settingFlags = map[string]string{
	"grayscale": imgprep.KeyGrayscale,
	"contrast":  imgprep.KeyContrast,
	"unsharp":   imgprep.KeyUnsharpMask,
	"otsu":      imgprep.KeyOtsuThreshold,
	"deskew":    imgprep.KeyDeskew,
	"adaptive":  imgprep.KeyAdaptiveThreshold,
	"method":    imgprep.KeyAdaptiveThresholdMethod,
	"type":      imgprep.KeyAdaptiveThresholdType,
	"block":     imgprep.KeyAdaptiveThresholdBlock,
	"offset":    imgprep.KeyAdaptiveThresholdOffset,
	"max":       imgprep.KeyAdaptiveThresholdMaxValue,
	"persist":   imgprep.KeyPersist,
}

var compression imgprep.TIFFCompression

func init() {
	flag.TextVar(&compression, "compression", imgprep.TIFFDeflate, "")

	defaults := imgprep.DefaultConfig()
	flag.Bool("grayscale", defaults.Grayscale, "")
	flag.Bool("contrast", defaults.ContrastNorm, "")
	flag.Bool("unsharp", defaults.UnsharpMask, "")
	flag.Bool("otsu", defaults.OtsuThreshold, "")
	flag.Bool("deskew", defaults.Deskew, "")
	flag.Bool("adaptive", defaults.AdaptiveThreshold, "")
	flag.Int("method", int(defaults.Adaptive.Method), "")
	flag.Int("type", int(defaults.Adaptive.Type), "")
	flag.Int("block", defaults.Adaptive.BlockSize, "")
	flag.Float64("offset", defaults.Adaptive.Offset, "")
	flag.Float64("max", defaults.Adaptive.MaxValue, "")
	flag.Bool("persist", defaults.Persist, "")
}

var supported = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|tiff?|bmp|webp|pdf)$`)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
	fmt.Println(`
  --src
		source file or directory
  --dst
		destination directory (default: output)
  --force
		force overwrite (default: false)
  --engine
		recognition engine, tesseract or vision (default: tesseract)
  --lang
		recognition languages separated by "+" (default: eng)
  --credentials
		Google Cloud credentials file, vision engine and bucket only
  --bucket, prefix
		store annotated images in a Cloud Storage bucket instead of dst
  --format
		annotated image format (jpg, jpeg, png, gif, tif, tiff and bmp are supported, default: jpg)
  --quality
		set jpeg quality (range 1-100, default: 30)
  --compression
		tiff compression, none or deflate (default: deflate)
  --font, fontsize
		TrueType font and size for labels on annotated images (default: basic font)
  --width, height
		bound the decoded image size, 0 means unbounded
  --group
		outline text blocks instead of lines and words (default: false)
  --worker
		number of images processed at once (default: 5)
  --procs
		maximum number of goroutines for pixel stages, 0 means GOMAXPROCS (default: 0)
  --grayscale, contrast, unsharp, otsu, deskew, adaptive
		toggle preprocessing stages (default: true)
  --method
		adaptive threshold method, 0 mean or 1 gaussian (default: 0)
  --type
		adaptive threshold type, 0 binary or 1 binary inverted (default: 0)
  --block
		adaptive threshold block size, odd and greater than 1 (default: 25)
  --offset
		constant subtracted from the local mean (default: 10)
  --max
		value of pixels passing the threshold (default: 200)
  --persist
		keep annotated images (default: true)

Settings not given as flags are read from IMGPREP_<KEY> environment variables,
which may be put in a .env file.`)
}

func main() {
	var code int
	defer func() { os.Exit(code) }()

	self, err := os.Executable()
	if err != nil {
		log.Println("Failed to get self path", err)
		code = 1
		return
	}

	flag.Usage = usage
	iniflags.SetConfigFile(filepath.Join(filepath.Dir(self), "config.ini"))
	iniflags.SetAllowMissingConfigFile(true)
	iniflags.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Println("Failed to load .env:", err)
	}

	log.SetOutput(filepath.Join(filepath.Dir(self), fmt.Sprintf("imgprep%s.log", time.Now().Format("20060102150405"))), os.Stdout)
	if *debug {
		log.SetLevel(slog.LevelDebug)
	}
	if *procs > 0 {
		imgprep.SetMaxProcs(*procs)
	}

	flags := make(imgprep.MapSettings)
	flag.Visit(func(f *flag.Flag) {
		if key, ok := settingFlags[f.Name]; ok {
			flags[key] = f.Value.String()
		}
	})
	cfg, err := imgprep.ConfigFromSettings(imgprep.LayeredSettings{flags, imgprep.EnvSettings{Prefix: "IMGPREP_"}})
	if err != nil {
		log.Print(err)
		code = 1
		return
	}

	outputFormat, err := imgprep.FormatFromExtension(*format)
	if err != nil {
		log.Println("Unknown output format:", *format)
		code = 1
		return
	}
	fo := &imgprep.FormatOption{
		Format:       outputFormat,
		EncodeOption: []imgprep.EncodeOption{imgprep.Quality(*quality), imgprep.TIFFCompressionType(compression)},
	}

	ctx := context.Background()
	var opts []option.ClientOption
	if *credentials != "" {
		opts = append(opts, option.WithCredentialsFile(*credentials))
	}

	p := &imgprep.Processor{
		Decoder:       imgprep.NewDecoder(),
		GroupInBlocks: *group,
		ReqWidth:      *width,
		ReqHeight:     *height,
	}
	if *font != "" {
		face, err := imgprep.LoadFace(*font, *fontSize)
		if err != nil {
			log.Print(err)
			code = 1
			return
		}
		p.Face = face
	}
	switch *engine {
	case "tesseract":
		p.Recognizer = tesseract.New(strings.Split(*lang, "+")...)
	case "vision":
		client := must.OK1(visionapi.NewImageAnnotatorClient(ctx, opts...))
		defer client.Close()
		p.Recognizer = vision.New(client)
	default:
		log.Println("Unknown engine:", *engine)
		code = 1
		return
	}
	if *bucket != "" {
		client := must.OK1(storage.NewClient(ctx, opts...))
		defer client.Close()
		sink := gcs.New(client, *bucket, *prefix)
		sink.Format = fo
		p.Sink = sink
	} else {
		p.Sink = &imgprep.DirSink{Dir: filepath.Join(*dst, "annotated"), Format: fo}
	}

	srcInfo, err := os.Stat(*src)
	if err != nil {
		log.Print(err)
		code = 1
		return
	}
	if err := os.MkdirAll(*dst, 0755); err != nil {
		log.Print(err)
		code = 1
		return
	}

	switch mode := srcInfo.Mode(); {
	case mode.IsDir():
		var images []string
		filepath.WalkDir(*src, func(path string, d fs.DirEntry, _ error) error {
			if d != nil && !d.IsDir() && supported.MatchString(d.Name()) {
				images = append(images, path)
			}
			return nil
		})
		total := len(images)
		log.Println("Total images:", total)

		start := time.Now()
		if err := processDir(ctx, p, cfg, *src, *dst, images); err != nil {
			log.Print(err)
			code = 1
			return
		}
		log.Println("Job done! Elapsed time:", time.Since(start))

	case mode.IsRegular():
		if err := process(ctx, p, cfg, *src, filepath.Join(*dst, filepath.Base(*src))); err != nil {
			log.Print(err)
			code = 1
			return
		}

	default:
		log.Print("Unknown source.")
		code = 1
	}
	log.Print("Done.")
}

var errSkip = errors.New("skip")

// processDir processes images found under src with *worker goroutines and
// writes their results to the same relative paths under dst.
func processDir(ctx context.Context, p *imgprep.Processor, cfg imgprep.Config, src, dst string, images []string) error {
	pb := progressbar.New(len(images))
	if err := pb.Start(); err != nil {
		return err
	}
	if err := workers.Workers(*worker).Run(ctx, workers.SliceJob(images, func(_ int, image string) {
		defer pb.Add(1)

		rel, err := filepath.Rel(src, image)
		if err != nil {
			log.Println(image, err)
			return
		}
		if err := process(ctx, p, cfg, image, filepath.Join(dst, rel)); err != nil && err != errSkip {
			log.Println(image, err)
		}
	})); err != nil {
		pb.Cancel()
		return err
	}
	pb.Wait()
	return nil
}

type result struct {
	Text        string          `json:"text"`
	Result      json.RawMessage `json:"result"`
	Coordinates json.RawMessage `json:"coordinates"`
	Annotated   string          `json:"annotated,omitempty"`
}

// process writes the recognition result of image to output with a .json
// extension.
func process(ctx context.Context, p *imgprep.Processor, cfg imgprep.Config, image, output string) error {
	output = strings.TrimSuffix(output, filepath.Ext(output)) + ".json"
	if _, err := os.Stat(output); err == nil && !*force {
		if *debug {
			log.Println("Skip", output)
		}
		return errSkip
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return err
	}

	out, err := p.Process(ctx, imgprep.FileSource(image), cfg)
	if err != nil {
		return err
	}
	if !out.Recognized {
		log.Println("No text found in", image)
		return nil
	}

	b, err := json.MarshalIndent(result{out.PlainText, json.RawMessage(out.Result), json.RawMessage(out.Coordinates), out.Saved}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, b, 0644); err != nil {
		return err
	}
	if *debug {
		log.Printf("[Debug]Processed %s\n", image)
	}
	return nil
}
