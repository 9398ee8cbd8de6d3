package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeDeviceTXT creates the TXT records for a device.
func EncodeDeviceTXT(info *DeviceInfo) TXTRecordMap {
	proto := info.Protocol
	if proto == 0 {
		proto = ProtocolVersion
	}
	txt := TXTRecordMap{
		TXTKeySerial:  info.Serial,
		TXTKeyProduct: info.Product,
		TXTKeyProto:   strconv.Itoa(proto),
	}
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}
	return txt
}

// DecodeDeviceTXT parses TXT records into a DeviceInfo. Port is left zero.
func DecodeDeviceTXT(txt TXTRecordMap) (*DeviceInfo, error) {
	info := &DeviceInfo{}
	var ok bool

	if info.Serial, ok = txt[TXTKeySerial]; !ok || info.Serial == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeySerial)
	}
	if info.Product, ok = txt[TXTKeyProduct]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyProduct)
	}
	protoStr, ok := txt[TXTKeyProto]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyProto)
	}
	proto, err := strconv.Atoi(protoStr)
	if err != nil || proto <= 0 {
		return nil, fmt.Errorf("%w: proto %q", ErrInvalidTXT, protoStr)
	}
	info.Protocol = proto
	info.Name = txt[TXTKeyName]

	return info, nil
}

// ValidateTXT checks that every key=value pair fits a TXT string.
func ValidateTXT(txt TXTRecordMap) error {
	for k, v := range txt {
		if k == "" || strings.Contains(k, "=") {
			return fmt.Errorf("%w: key %q", ErrInvalidTXT, k)
		}
		if len(k)+1+len(v) > MaxTXTValueLen {
			return fmt.Errorf("%w: %s too long", ErrInvalidTXT, k)
		}
	}
	return nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if !found {
			if s != "" {
				// Key without value (boolean flag)
				txt[s] = ""
			}
			continue
		}
		txt[k] = v
	}
	return txt
}
