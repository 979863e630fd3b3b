// Command gomagic identifies file types from the command line, the way
// the Unix file(1) utility does.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fileclass/gomagic"
)

const (
	programName    = "gomagic"
	programVersion = "0.1.0"
)

var (
	brief     = flag.Bool("b", false, "brief mode, do not prepend filenames to output")
	magicFile = flag.String("m", "", "use the specified magic file instead of the default directory")
	follow    = flag.Bool("L", false, "follow symbolic links")
	list      = flag.Bool("l", false, "list magic patterns and their strength")
	version   = flag.Bool("version", false, "show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s %s\n", programName, programVersion)
		return
	}

	opts := gomagic.Options{FollowSymlinks: *follow}
	if *magicFile != "" {
		opts.MagicFiles = []string{*magicFile}
	}

	f, err := gomagic.NewWithOptions(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}

	if *list {
		for _, line := range f.ListMagic() {
			fmt.Println(line)
		}
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION...] FILE...\n", programName)
		os.Exit(2)
	}

	exitCode := 0
	for _, path := range args {
		result, err := f.IdentifyFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s: %v\n", programName, path, err)
			exitCode = 1
			continue
		}
		if *brief {
			fmt.Println(result)
		} else {
			fmt.Printf("%s: %s\n", path, result)
		}
	}
	os.Exit(exitCode)
}
