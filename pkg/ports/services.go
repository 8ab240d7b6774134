package ports

// Unknown is the service name reported for ports missing from the table.
const Unknown = "Unknown"

var services = map[int]string{
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	80:    "HTTP",
	110:   "POP3",
	123:   "NTP",
	135:   "MSRPC",
	139:   "NetBIOS",
	143:   "IMAP",
	161:   "SNMP",
	443:   "HTTPS",
	445:   "SMB",
	993:   "IMAPS",
	995:   "POP3S",
	1723:  "PPTP",
	3306:  "MySQL",
	3389:  "RDP",
	5900:  "VNC",
	6379:  "Redis",
	8080:  "HTTP-Proxy",
	8443:  "HTTPS-Alt",
	9200:  "Elasticsearch",
	27017: "MongoDB",
}

// udpEligible are the ports that get a UDP probe when TCP connect fails.
var udpEligible = map[int]bool{
	53:  true,
	123: true,
	161: true,
}

// Service returns the well-known service name for port, or Unknown.
func Service(port int) string {
	if name, ok := services[port]; ok {
		return name
	}
	return Unknown
}

// UDPEligible reports whether port should fall back to a UDP probe.
func UDPEligible(port int) bool {
	return udpEligible[port]
}
