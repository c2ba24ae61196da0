package main

import (
	"os"

	packetprotocols "github.com/Supermagnum/gr-packet-protocols/src"
)

func main() {
	packetprotocols.Main(os.Args)
}
