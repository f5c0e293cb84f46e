package mockapi

import "grimm.is/rulestage/internal/rules"

// SeedSamples loads a small, plausible rule set into every collection.
func (s *Server) SeedSamples() {
	s.SeedRaw(rules.Traffic, "cfg01a2", map[string]any{
		"name": "Allow-DNS", "src_ip": "192.168.1.0/24", "dest_ip": "8.8.8.8",
		"proto": "udp", "dest_port": "53", "target": "ACCEPT",
	})
	s.Seed(rules.Traffic, map[string]any{
		"sourceIP": "192.168.1.10", "destinationIP": "8.8.8.8",
		"protocol": "tcp", "portRange": "80-443", "action": "allow",
	})
	s.Seed(rules.PortForwarding, map[string]any{
		"destinationIP": "192.168.1.20", "protocol": "tcp",
		"sourcePort": "8080", "destinationPort": "80",
	})
	s.Seed(rules.PortBlocking, map[string]any{"protocol": "tcp", "portRange": "6881-6889"})
	s.Seed(rules.TimeBased, map[string]any{
		"startTime": "08:00", "endTime": "17:00",
		"protocol": "tcp", "portRange": "443", "action": "deny",
	})
	s.Seed(rules.MAC, map[string]any{"macAddress": "00:1a:2b:3c:4d:5e", "action": "deny"})
	s.Seed(rules.DNS,
		map[string]any{"domainOrURL": "ads.example.com"},
		map[string]any{"domainOrURL": "tracker.example.net"},
	)
	s.Seed(rules.QoS, map[string]any{"macAddress": "00:1a:2b:3c:4d:5f", "priority": "high"})
	s.Seed(rules.VPNNAT, map[string]any{
		"ruleType": "vpn", "sourceIP": "10.8.0.0/24", "destinationIP": "192.168.1.0/24",
		"protocol": "udp", "portRange": "1194",
	})
}
