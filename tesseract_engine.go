package mrzworker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// This variant of the TesseractEngine calls tesseract via exec
type TesseractEngine struct {
	openEngine
	binary string
}

type TesseractEngineArgs struct {
	configVars  map[string]string
	pageSegMode string
	lang        string
	saveFiles   bool
}

func NewTesseractEngineArgs(engineConfig EngineConfig) *TesseractEngineArgs {
	return &TesseractEngineArgs{
		configVars: map[string]string{
			"tessedit_char_whitelist": MrzWhitelist,
			"load_system_dawg":        "0",
			"load_freq_dawg":          "0",
		},
		pageSegMode: "6",
		lang:        engineConfig.TesseractLang,
		saveFiles:   engineConfig.SaveFiles,
	}
}

// return a slice that can be passed to tesseract binary as command line
// args, eg, ["-c", "tessedit_char_whitelist=0123456789", "-c", "foo=bar"]
func (t TesseractEngineArgs) Export() []string {
	keys := make([]string, 0, len(t.configVars))
	for k := range t.configVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result []string
	if t.pageSegMode != "" {
		result = append(result, "--psm", t.pageSegMode)
	}
	for _, k := range keys {
		result = append(result, "-c", fmt.Sprintf("%s=%s", k, t.configVars[k]))
	}
	if t.lang != "" {
		result = append(result, "-l", t.lang)
	}

	return result
}

func (t *TesseractEngine) Name() string {
	return "tesseract"
}

func (t *TesseractEngine) Init(ctx context.Context, engineConfig EngineConfig) (EngineResult, error) {
	binary, err := exec.LookPath("tesseract")
	if err != nil {
		return EngineResult{Code: 3, Phrase: "tesseract binary not found in PATH"}, nil
	}
	t.binary = binary
	return t.init(engineConfig), nil
}

func (t *TesseractEngine) DeInit() (EngineResult, error) {
	return t.deInit(), nil
}

func (t *TesseractEngine) Process(ctx context.Context, frame *Frame) (EngineResult, error) {
	if !t.initialized {
		return notInitializedResult, nil
	}
	start := time.Now()

	img, err := t.prepare(frame)
	if err != nil {
		return EngineResult{}, err
	}

	tmpFileName := createTempFileName("")
	inputFilename := tmpFileName + ".png"
	if err := imaging.Save(img, inputFilename); err != nil {
		return EngineResult{}, errors.Wrap(err, "could not write tesseract input")
	}
	engineArgs := NewTesseractEngineArgs(t.config)
	if !engineArgs.saveFiles {
		defer os.Remove(inputFilename)
	}

	lines, err := t.processImageFile(ctx, inputFilename, tmpFileName, *engineArgs)
	if err != nil {
		return EngineResult{Code: 4, Phrase: err.Error()}, nil
	}
	return t.result(lines, start)
}

func (t *TesseractEngine) processImageFile(ctx context.Context, inputFilename string, tmpOutFileBaseName string,
	engineArgs TesseractEngineArgs) ([]ocrLine, error) {

	// possible file extensions
	fileExtensions := []string{"tsv", "txt"}

	// build args array, tsv output gives us boxes and confidences
	cmdArgs := []string{inputFilename, tmpOutFileBaseName}
	cmdArgs = append(cmdArgs, engineArgs.Export()...)
	cmdArgs = append(cmdArgs, "tsv")
	log.Debug().Str("component", "MRZ_TESSERACT").Strs("cmdArgs", cmdArgs).Msg("exec tesseract")

	cmd := exec.CommandContext(ctx, t.binary, cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Error().Err(err).Str("component", "MRZ_TESSERACT").Msg(string(output))
		return nil, errors.Wrap(err, "tesseract failed")
	}

	outBytes, outFile, err := findAndReadOutfile(tmpOutFileBaseName, fileExtensions)

	// delete output file when we are done
	if !engineArgs.saveFiles && outFile != "" {
		defer os.Remove(outFile)
	}
	if err != nil {
		log.Error().Err(err).Str("component", "MRZ_TESSERACT").
			Str("file_name", tmpOutFileBaseName).Msg("Error getting data from out file")
		return nil, err
	}

	if strings.HasSuffix(outFile, ".tsv") {
		return parseTesseractTSV(outBytes)
	}
	var lines []ocrLine
	for _, l := range strings.Split(string(outBytes), "\n") {
		lines = append(lines, ocrLine{text: l})
	}
	return lines, nil
}

// parseTesseractTSV joins the words of the tesseract tsv output into lines.
func parseTesseractTSV(data []byte) ([]ocrLine, error) {
	type lineKey struct{ block, par, line int }
	var (
		order []lineKey
		words = map[lineKey][]string{}
		confs = map[lineKey][]float64{}
		boxes = map[lineKey][4]float64{}
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		nums := make([]float64, 11)
		for i := 0; i < 11; i++ {
			v, err := strconv.ParseFloat(cols[i], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid tsv column %d", i)
			}
			nums[i] = v
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		key := lineKey{int(nums[2]), int(nums[3]), int(nums[4])}
		left, top, width, height := nums[6], nums[7], nums[8], nums[9]
		if _, ok := words[key]; !ok {
			order = append(order, key)
			boxes[key] = [4]float64{left, top, left + width, top + height}
		} else {
			b := boxes[key]
			boxes[key] = [4]float64{minFloat(b[0], left), minFloat(b[1], top),
				maxFloat(b[2], left+width), maxFloat(b[3], top+height)}
		}
		words[key] = append(words[key], text)
		confs[key] = append(confs[key], nums[10])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	lines := make([]ocrLine, 0, len(order))
	for _, key := range order {
		sum := 0.0
		for _, c := range confs[key] {
			sum += c
		}
		b := boxes[key]
		lines = append(lines, ocrLine{
			text:       strings.Join(words[key], ""),
			confidence: sum / float64(len(confs[key])),
			box:        boxOf(b[0], b[1], b[2], b[3]),
		})
	}
	return lines, nil
}

func findOutfile(outfileBaseName string, fileExtensions []string) (string, error) {

	for _, fileExtension := range fileExtensions {

		outFile := fmt.Sprintf("%v.%v", outfileBaseName, fileExtension)
		log.Debug().Str("component", "MRZ_TESSERACT").Str("outFile", outFile).
			Msg("check if file exists")

		if _, err := os.Stat(outFile); err == nil {
			return outFile, nil
		}

	}

	return "", fmt.Errorf("could not find outfile. Basename: %v Extensions: %v", outfileBaseName, fileExtensions)

}

func findAndReadOutfile(outfileBaseName string, fileExtensions []string) (outBytes []byte, outfile string, err error) {

	outfile, err = findOutfile(outfileBaseName, fileExtensions)
	if err != nil {
		return nil, "", err
	}
	outBytes, err = os.ReadFile(outfile)
	if err != nil {
		return nil, outfile, err
	}
	return outBytes, outfile, nil

}
