// Command vmpager-demo drives a Pager from the command line so its fault
// and eviction behavior can be observed without writing a test. It is not
// part of the simulator's API surface; it exists to exercise it end to end.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"vmpager/pager"
)

func main() {
	var (
		numPages    int
		pageSize    int
		maxResident int
		policyName  string
		touches     int
	)

	flag.IntVar(&numPages, "pages", 16, "number of virtual pages")
	flag.IntVar(&pageSize, "page-size", 4096, "bytes per page, must be a power of two")
	flag.IntVar(&maxResident, "resident", 4, "maximum number of resident pages")
	flag.StringVar(&policyName, "policy", "clock", "replacement policy: fifo or clock")
	flag.IntVar(&touches, "touches", 64, "number of pseudo-random page touches to perform")
	flag.Parse()

	var rp pager.ReplacementPolicy
	switch policyName {
	case "fifo":
		rp = pager.FIFOReplacement
	case "clock":
		rp = pager.ClockReplacement
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown policy %q (want fifo or clock)\n", policyName)
		os.Exit(1)
	}

	p, err := pager.Open(pager.Config{
		NumPages:    numPages,
		PageSize:    pageSize,
		MaxResident: maxResident,
		Policy:      rp,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	fmt.Printf("reserved range [%#x, %#x), %d pages of %d bytes, resident budget %d, policy %s\n",
		p.Start(), p.End(), numPages, pageSize, maxResident, policyName)

	seq := lcgSequence(touches, uint64(numPages))
	for i, page := range seq {
		addr := p.Start() + uintptr(page)*uintptr(pageSize)
		if i%2 == 0 {
			if err := p.WriteByte(addr, byte(i)); err != nil {
				fmt.Fprintf(os.Stderr, "Error: write page %d: %v\n", page, err)
				os.Exit(1)
			}
		} else if _, err := p.ReadByte(addr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: read page %d: %v\n", page, err)
			os.Exit(1)
		}
	}

	// Give the tick source a moment to age the final state before reporting.
	time.Sleep(20 * time.Millisecond)

	fmt.Printf("touches=%d faults=%d loads=%d\n", touches, p.NumFaults(), p.NumLoads())
}

// lcgSequence produces a deterministic pseudo-random page sequence without
// pulling in math/rand: a small linear congruential generator is plenty for
// driving a demo and keeps the run repeatable across invocations.
func lcgSequence(n int, numPages uint64) []int {
	seq := make([]int, n)
	state := uint64(1469598103934665603)
	for i := range seq {
		state = state*6364136223846793005 + 1442695040888963407
		seq[i] = int((state >> 33) % numPages)
	}
	return seq
}
