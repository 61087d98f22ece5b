package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/template"

	"github.com/northvolt/go-fpgasign"
	"github.com/peterbourgon/ff/v3/ffcli"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

type infoConfig struct {
	rootConfig *rootConfig
	out        io.Writer
	err        io.Writer
	json       bool
}

type portInfo struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Number  int      `json:"number"`
}

type boardInfo struct {
	Name         string `json:"name"`
	SPIFrequency string `json:"spi_frequency"`
	AnalogInput  string `json:"analog_input,omitempty"`
}

type hostInfo struct {
	Ports  []portInfo  `json:"ports"`
	Boards []boardInfo `json:"boards"`
}

func (c *infoConfig) Exec(ctx context.Context, _ []string) error {
	if c.rootConfig.verbose {
		fmt.Fprintf(c.err, "info\n")
	}

	if _, err := host.Init(); err != nil {
		return err
	}

	hi := getHostInfo()
	if c.json {
		return writeJSON(c.out, hi)
	} else {
		return writeText(c.out, hi)
	}
}

func getHostInfo() *hostInfo {
	hi := &hostInfo{Ports: []portInfo{}}
	for _, ref := range spireg.All() {
		hi.Ports = append(hi.Ports, portInfo{
			Name:    ref.Name,
			Aliases: ref.Aliases,
			Number:  ref.Number,
		})
	}
	for _, b := range []fpgasign.Board{fpgasign.BoardRaspberryPi, fpgasign.BoardGalileo} {
		hi.Boards = append(hi.Boards, boardInfo{
			Name:         b.String(),
			SPIFrequency: b.SPIFrequency().String(),
			AnalogInput:  b.AnalogInput(),
		})
	}
	return hi
}

const hostInfoTemplate = `
SPI Ports:
{{- range .Ports }}
    {{ .Name }}{{ with .Aliases }} {{ . }}{{ end }}
{{- else }}
    none found
{{- end }}

Boards:
{{- range .Boards }}
    {{ printf "%-8s" .Name }} {{ .SPIFrequency }}{{ with .AnalogInput }}, analog input {{ . }}{{ end }}
{{- end }}
`

func writeText(w io.Writer, hi *hostInfo) error {
	t, err := template.New("info").Parse(hostInfoTemplate)
	if err != nil {
		return err
	}

	return t.Execute(w, hi)
}

func newInfoCmd(
	rootConfig *rootConfig, out io.Writer, err io.Writer,
) *ffcli.Command {
	cfg := infoConfig{
		rootConfig: rootConfig,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("fpgasign info", flag.ExitOnError)
	fs.BoolVar(&cfg.json, "json", false, "output in json mode")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "info",
		ShortUsage: "info",
		ShortHelp:  "Lists the SPI ports found on this host and the supported boards.",
		FlagSet:    fs,
		Options:    ffOptions,
		Exec:       cfg.Exec,
	})
}
