// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/ezrec/cppbus/cpp"
	"github.com/ezrec/cppbus/internal"
	"github.com/ezrec/cppbus/script"
	"github.com/ezrec/cppbus/sim"
)

func main() {
	var geometry string
	var run string
	var read bool
	var write string
	var target int
	var address uint64
	var length int
	var verbose bool

	flag.StringVar(&geometry, "g", "", "device geometry .yaml file")
	flag.StringVar(&run, "s", "", ".star access script to run")
	flag.BoolVar(&read, "r", false, "Read -n bytes at -t/-a")
	flag.StringVar(&write, "w", "", "Hex word to write at -t/-a")
	flag.IntVar(&target, "t", cpp.TARGET_MU, "CPP target")
	flag.Uint64Var(&address, "a", 0, "Address within the target")
	flag.IntVar(&length, "n", 4, "Read length in bytes")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	geom := sim.Geometry{}
	if len(geometry) != 0 {
		inf, err := os.Open(geometry)
		if err != nil {
			log.Fatalf("%v: %v", geometry, err)
		}
		defer inf.Close()

		geom, err = sim.LoadGeometry(inf)
		if err != nil {
			log.Fatalf("%v: %v", geometry, err)
		}
	}

	dev, err := sim.NewDevice(geom)
	if err != nil {
		log.Fatalf("%v: %v", geometry, err)
	}
	dev.Verbose = verbose

	handle, err := cpp.Open(dev, nil, false)
	if err != nil {
		log.Fatal(err)
	}
	defer handle.Free()
	handle.Verbose = verbose

	id := cpp.MakeID(target, cpp.ACTION_RW, 0)

	switch {
	case len(run) != 0:
		src, err := os.ReadFile(run)
		if err != nil {
			log.Fatalf("%v: %v", run, err)
		}
		err = script.Run(handle, run, string(src))
		if err != nil {
			log.Fatal(err)
		}
	case read:
		buffer := make([]byte, length)
		_, err = handle.Read(id, address, buffer)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Print(internal.Hexdump(address, buffer))
	case len(write) != 0:
		value, err := strconv.ParseUint(write, 16, 32)
		if err != nil {
			log.Fatalf("%v: %v", write, err)
		}
		err = handle.WriteL(id, address, uint32(value))
		if err != nil {
			log.Fatal(err)
		}
	default:
		serial, _ := handle.Serial()
		fmt.Printf("model:     0x%08x (6000 family: %v)\n",
			handle.Model(), cpp.ModelIs6000(handle.Model()))
		fmt.Printf("interface: 0x%04x\n", handle.Interface())
		fmt.Printf("serial:    %x\n", serial)
	}
}
