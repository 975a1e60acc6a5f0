package main

import (
	"os"
	_ "time/tzdata" // mapper.timezone must resolve on hosts without zoneinfo

	"github.com/EmnaWalha99/Job-Portal/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:]))
}
