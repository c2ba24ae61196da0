package packetprotocols

// Version of the protocol stack.  Reported by the KISS "Set Hardware"
// TNC: query and the packettnc banner.

const MAJOR_VERSION = 1
const MINOR_VERSION = 0
