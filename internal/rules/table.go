package rules

import (
	"fmt"
	"strings"

	"grimm.is/rulestage/internal/validation"
)

var (
	tcpUDP     = []string{"TCP", "UDP"}
	tcpUDPICMP = []string{"TCP", "UDP", "ICMP"}
	allowDeny  = []string{"allow", "deny"}
	priorities = []string{"high", "medium", "low"}
	ruleTypes  = []string{"vpn", "nat"}
)

// Target maps a UCI firewall target to the console's action vocabulary.
func Target(v string) string {
	switch strings.ToUpper(v) {
	case "ACCEPT":
		return "allow"
	case "REJECT", "DROP":
		return "deny"
	}
	return strings.ToLower(v)
}

// QoS traffic classes as configured on the router's shaper.
var qosClasses = map[string]string{
	"1:10": "High priority (40 MB/s)",
	"1:20": "Medium priority (30 MB/s)",
	"1:30": "Low priority (10 MB/s)",
}

// QoSClassID returns the shaper class for a priority, and the reverse
// mapping is used to label active rules.
func QoSClassID(priority string) string {
	switch strings.ToLower(priority) {
	case "high":
		return "1:10"
	case "medium":
		return "1:20"
	case "low":
		return "1:30"
	}
	return ""
}

func qosClass(v string) string { return qosClasses[v] }

func priorityLabel(v string) string {
	switch strings.ToLower(v) {
	case "high":
		return "High priority"
	case "medium":
		return "Medium priority"
	case "low":
		return "Low priority"
	}
	return v
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var (
	srcIPCol    = Column{Title: "Source", Keys: []string{"src_ip", "sourceIP"}}
	destIPCol   = Column{Title: "Destination", Keys: []string{"dest_ip", "destinationIP"}}
	protoCol    = Column{Title: "Protocol", Keys: []string{"proto", "protocol"}, Format: strings.ToUpper}
	portsCol    = Column{Title: "Ports", Keys: []string{"dest_port", "portRange"}}
	actionCol   = Column{Title: "Action", Keys: []string{"target", "action"}, Format: Target}
	startCol    = Column{Title: "Start", Keys: []string{"start_time", "startTime"}}
	endCol      = Column{Title: "End", Keys: []string{"stop_time", "endTime"}}
	nameCol     = Column{Title: "Name", Keys: []string{"name"}}

	protocolField = func(opts []string) Field {
		return Field{Name: "protocol", Label: "Protocol", Kind: validation.KindOneOf, Options: opts, Default: "TCP", Lower: true}
	}
	actionField = Field{Name: "action", Label: "Action", Kind: validation.KindOneOf, Options: allowDeny, Default: "allow", Lower: true}
)

var descriptors = map[Category]*Descriptor{
	Traffic: {
		Category: Traffic,
		Title:    "Traffic",
		Path:     "/api/firewall/rules",
		KeyField: "uciKey",
		Fields: []Field{
			{Name: "sourceIP", Label: "Source IP", Kind: validation.KindIPv4CIDR, Required: true, Placeholder: "192.168.1.10"},
			{Name: "destinationIP", Label: "Destination IP", Kind: validation.KindIPv4CIDR, Required: true, Placeholder: "8.8.8.8"},
			protocolField(tcpUDPICMP),
			{Name: "portRange", Label: "Port range", Kind: validation.KindPortRange, Placeholder: "80-443"},
			actionField,
		},
		Columns: []Column{nameCol, srcIPCol, destIPCol, protoCol, portsCol, actionCol},
		Summary: func(d Draft) string {
			return fmt.Sprintf("%s → %s (%s, %s) %s", d["sourceIP"], d["destinationIP"], d["protocol"], dash(d["portRange"]), d["action"])
		},
	},
	PortForwarding: {
		Category: PortForwarding,
		Title:    "Port forwarding",
		Path:     "/api/portforwarding/rules",
		KeyField: "uciKey",
		Fields: []Field{
			{Name: "sourceIP", Label: "Source IP", Kind: validation.KindIPv4, Placeholder: "203.0.113.7"},
			{Name: "destinationIP", Label: "Internal IP", Kind: validation.KindIPv4, Required: true, Placeholder: "192.168.1.20"},
			protocolField(tcpUDP),
			{Name: "sourcePort", Label: "External port", Kind: validation.KindPort, Required: true, Placeholder: "8080"},
			{Name: "destinationPort", Label: "Internal port", Kind: validation.KindPort, Required: true, Placeholder: "80"},
		},
		Columns: []Column{
			nameCol,
			srcIPCol,
			{Title: "External port", Keys: []string{"src_dport", "sourcePort"}},
			{Title: "Internal IP", Keys: []string{"dest_ip", "destinationIP"}},
			{Title: "Internal port", Keys: []string{"dest_port", "destinationPort"}},
			protoCol,
		},
		Summary: func(d Draft) string {
			src := d["sourceIP"]
			if src == "" {
				src = "*"
			}
			return fmt.Sprintf("%s:%s → %s:%s (%s)", src, d["sourcePort"], d["destinationIP"], d["destinationPort"], d["protocol"])
		},
	},
	PortBlocking: {
		Category: PortBlocking,
		Title:    "Port blocking",
		Path:     "/api/portblocking/rules",
		KeyField: "uciKey",
		Fields: []Field{
			protocolField(tcpUDP),
			{Name: "portRange", Label: "Port range", Kind: validation.KindPortRange, Required: true, Placeholder: "6881-6889"},
		},
		Columns: []Column{nameCol, protoCol, portsCol, actionCol},
		Summary: func(d Draft) string {
			return fmt.Sprintf("%s port %s blocked", d["protocol"], d["portRange"])
		},
	},
	TimeBased: {
		Category: TimeBased,
		Title:    "Time based",
		Path:     "/api/timebased/rules",
		KeyField: "uciKey",
		Fields: []Field{
			{Name: "startTime", Label: "Start time", Kind: validation.KindTime, Required: true, Placeholder: "08:00"},
			{Name: "endTime", Label: "End time", Kind: validation.KindTime, Required: true, Placeholder: "17:00"},
			protocolField(tcpUDP),
			{Name: "portRange", Label: "Port range", Kind: validation.KindPortRange, Required: true, Placeholder: "443"},
			actionField,
		},
		Columns: []Column{nameCol, startCol, endCol, protoCol, portsCol, actionCol},
		Summary: func(d Draft) string {
			return fmt.Sprintf("%s-%s, %s port %s %s", d["startTime"], d["endTime"], d["protocol"], d["portRange"], d["action"])
		},
	},
	MAC: {
		Category: MAC,
		Title:    "MAC",
		Path:     "/api/macrouting/rules",
		KeyField: "uciKey",
		Fields: []Field{
			{Name: "macAddress", Label: "MAC address", Kind: validation.KindMAC, Required: true, Lower: true, Placeholder: "00:1a:2b:3c:4d:5e"},
			actionField,
			{Name: "startTime", Label: "Start time", Kind: validation.KindTime, Placeholder: "08:00"},
			{Name: "endTime", Label: "End time", Kind: validation.KindTime, Placeholder: "17:00"},
		},
		Columns: []Column{
			nameCol,
			{Title: "MAC", Keys: []string{"src_mac", "macAddress"}},
			actionCol,
			startCol,
			endCol,
		},
		Summary: func(d Draft) string {
			start, end := d["startTime"], d["endTime"]
			if start == "" {
				start = "any time"
			}
			if end == "" {
				end = "any time"
			}
			return fmt.Sprintf("%s, %s - %s %s", d["macAddress"], start, end, d["action"])
		},
	},
	DNS: {
		Category: DNS,
		Title:    "DNS blocking",
		Path:     "/api/dnsblocking/rules",
		KeyField: "uciKey",
		Fields: []Field{
			{Name: "domainOrURL", Label: "Domain or URL", Kind: validation.KindDomain, Required: true, Placeholder: "ads.example.com"},
		},
		Columns: []Column{{Title: "Domain", Keys: []string{"domain", "domainOrURL"}}},
		Summary: func(d Draft) string { return d["domainOrURL"] },
	},
	QoS: {
		Category: QoS,
		Title:    "QoS",
		Path:     "/api/qos/rules",
		KeyField: "mark",
		Fields: []Field{
			{Name: "macAddress", Label: "MAC address", Kind: validation.KindMAC, Required: true, Lower: true, Placeholder: "00:1a:2b:3c:4d:5e"},
			{Name: "priority", Label: "Priority", Kind: validation.KindOneOf, Options: priorities, Default: "low"},
		},
		Columns: []Column{
			{Title: "Mark", Keys: []string{"mark"}},
			{Title: "MAC", Keys: []string{"mac", "macAddress"}},
			{Title: "Priority", Keys: []string{"priority"}, Format: priorityLabel},
			{Title: "Class", Keys: []string{"classId"}, Format: qosClass},
		},
		Summary: func(d Draft) string {
			return fmt.Sprintf("%s, %s", d["macAddress"], priorityLabel(d["priority"]))
		},
	},
	VPNNAT: {
		Category: VPNNAT,
		Title:    "VPN / NAT",
		Path:     "/api/vpn-nat/rules",
		KeyField: "uciKey",
		Fields: []Field{
			{Name: "ruleType", Label: "Rule type", Kind: validation.KindOneOf, Options: ruleTypes, Default: "vpn", Lower: true},
			{Name: "sourceIP", Label: "Source IP", Kind: validation.KindIPv4CIDR, Required: true, Placeholder: "10.8.0.0/24"},
			{Name: "destinationIP", Label: "Destination IP", Kind: validation.KindIPv4CIDR, Required: true, Placeholder: "192.168.1.0/24"},
			protocolField(tcpUDP),
			{Name: "portRange", Label: "Port range", Kind: validation.KindPortRange, Placeholder: "1194"},
		},
		Columns: []Column{
			nameCol,
			{Title: "Type", Keys: []string{"ruleType", "type"}, Format: strings.ToUpper},
			srcIPCol,
			destIPCol,
			protoCol,
			portsCol,
		},
		Summary: func(d Draft) string {
			return fmt.Sprintf("%s %s → %s (%s, %s)", strings.ToUpper(d["ruleType"]), d["sourceIP"], d["destinationIP"], d["protocol"], dash(d["portRange"]))
		},
	},
}

func init() {
	for _, d := range descriptors {
		d.SettleDelay = DefaultSettleDelay
	}
}

// Lookup returns a copy of the descriptor for c. Callers may adjust the
// copy (settle delay, path prefix) without affecting other users.
func Lookup(c Category) (*Descriptor, error) {
	d, ok := descriptors[c]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", c)
	}
	cp := *d
	return &cp, nil
}

// MustLookup is Lookup for known-good categories.
func MustLookup(c Category) *Descriptor {
	d, err := Lookup(c)
	if err != nil {
		panic(err)
	}
	return d
}

// ByPath finds the category served at path.
func ByPath(path string) (Category, bool) {
	path = strings.TrimSuffix(path, "/")
	for c, d := range descriptors {
		if d.Path == path {
			return c, true
		}
	}
	return "", false
}
