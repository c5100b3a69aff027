// Command cyclops matches stereo pairs and segments images by colour.
//
// Usage:
//
//	cyclops [glog flags] stereo -left L -right R [-config cfg.json] [-hebp] [-max-disp N] [-out disp.png] [-fill]
//	cyclops [glog flags] segment -in I [-config cfg.json] [-colours K] [-out seg.png]
//
// Both commands also take -max-width and -blur to shrink and smooth their
// input first. Logging goes through glog, so pass -logtostderr before the
// command to see it, and -v=1 or -v=2 for per-run and per-level detail.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/TrevorS/cyclops/progress"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] stereo|segment [command flags]\n\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	err := run(flag.Arg(0), flag.Args()[1:])
	if errors.Is(err, flag.ErrHelp) {
		err = nil
	}
	if err != nil {
		glog.Exitf("cyclops: %v", err)
	}
	glog.Flush()
}

func run(cmd string, args []string) error {
	switch cmd {
	case "stereo":
		return runStereo(args)
	case "segment":
		return runSegment(args)
	}
	return errors.Errorf("unknown command %q", cmd)
}

// progressLogger returns a progress callback that logs each new tenth of
// the work at verbosity 1.
func progressLogger(name string) func(*progress.Progress) {
	var mu sync.Mutex
	last := 0
	return func(p *progress.Progress) {
		tenth := int(p.Prog() * 10)
		mu.Lock()
		defer mu.Unlock()
		if tenth <= last {
			return
		}
		last = tenth
		done, left := p.Time()
		glog.V(1).Infof("%s: %d%% after %v, about %v left",
			name, tenth*10, done.Round(time.Millisecond), left.Round(time.Second))
	}
}
