// Package discovery advertises and finds radiotree control servers over
// mDNS/DNS-SD.
//
// Devices register one instance of _radiotree._tcp per control server. The
// instance name is "<product>-<serial>" (truncated to a DNS label). TXT
// records carry:
//
//   - serial: motherboard serial number (required)
//   - product: product name from the EEPROM (required)
//   - name: user-assigned device name (optional)
//   - proto: control protocol version (required)
//
// Clients browse with MDNSBrowser. Entries seen on several interfaces are
// merged into one DeviceService per instance.
package discovery
