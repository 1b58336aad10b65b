// cmd/faultctl/store.go
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/tamzrod/faultcapture/internal/device"
	"github.com/tamzrod/faultcapture/internal/query"
	"github.com/tamzrod/faultcapture/internal/record"
)

// storeCmd is embedded by commands that act on the configured store.
type storeCmd struct {
	logCmd
	outCmd
	cfgCmd
}

func (c *storeCmd) openStore() (*device.Store, error) {
	return device.OpenStore(c.log, c.cfg.Store)
}

// ---- show ----

type showCmd struct {
	storeCmd
}

func (cmd *showCmd) Execute(_ []string) error {
	s, err := cmd.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	r := s.Region()
	fmt.Fprintf(cmd.out, "Device %s: %s region at %#x (%s)\n", cmd.cfg.Device.ID,
		cmd.cfg.Store.Backend, r.Base(), humanize.IBytes(uint64(r.Size())))
	return s.Reader().Print(cmd.out)
}

// ---- dump ----

type dumpCmd struct {
	logCmd
	outCmd
	Args struct {
		Image string `positional-arg-name:"IMAGE" description:"raw flash image, - for stdin"`
	} `positional-args:"yes" required:"yes"`
}

func (cmd *dumpCmd) Execute(_ []string) error {
	var (
		data []byte
		err  error
	)
	if cmd.Args.Image == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(cmd.Args.Image)
	}
	if err != nil {
		return errors.Wrapf(err, "read %s", cmd.Args.Image)
	}

	cmd.log.Debug("scanning image", "image", cmd.Args.Image, "size", humanize.IBytes(uint64(len(data))))

	off, rec, err := record.Scan(data)
	if err != nil {
		return errors.Wrapf(err, "%s (%s scanned)", cmd.Args.Image, humanize.IBytes(uint64(len(data))))
	}

	fmt.Fprintf(cmd.out, "Record at offset %#x of %s\n", off, cmd.Args.Image)
	return query.Format(cmd.out, &rec)
}

// ---- pull ----

type pullCmd struct {
	storeCmd
	Output string `short:"o" long:"output" required:"1" description:"file to write the raw region to"`
}

func (cmd *pullCmd) Execute(_ []string) error {
	s, err := cmd.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	r := s.Region()
	buf := make([]byte, r.Size())
	if _, err := r.ReadAt(buf, 0); err != nil {
		return err
	}
	if err := os.WriteFile(cmd.Output, buf, 0644); err != nil {
		return errors.Wrapf(err, "write %s", cmd.Output)
	}

	cmd.log.Info("region pulled", "output", cmd.Output, "size", humanize.IBytes(uint64(len(buf))))
	return nil
}

// ---- clear ----

type clearCmd struct {
	storeCmd
}

func (cmd *clearCmd) Execute(_ []string) error {
	s, err := cmd.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "Device %s: fault region cleared\n", cmd.cfg.Device.ID)
	return nil
}
