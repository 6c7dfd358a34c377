// scqcserver serves a folder of generated QC reports over HTTP.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	_ "github.com/carbocation/scqc/buildinfoprint"
)

func main() {
	var reportDir string
	var port int

	flag.StringVar(&reportDir, "reports", "", "Path to the folder holding generated HTML reports and their artifacts")
	flag.IntVar(&port, "port", 9019, "Port for the HTTP server")

	flag.Parse()

	if reportDir == "" {
		log.Fatalln("Please provide -reports")
	}

	log.Println("Launched scqcserver")

	h := &handler{reportDir: reportDir}

	log.Println("Starting HTTP server on port", port)
	if err := http.ListenAndServe(fmt.Sprintf(`:%d`, port), router(h)); err != nil {
		log.Fatalln(err)
	}
}
