package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceTXTRoundTrip(t *testing.T) {
	info := &DeviceInfo{Serial: "31A4F2B", Product: "B210", Name: "roof"}
	txt := EncodeDeviceTXT(info)

	assert.Equal(t, "1", txt[TXTKeyProto])
	strs := TXTRecordsToStrings(txt)
	assert.Equal(t, []string{"name=roof", "product=B210", "proto=1", "serial=31A4F2B"}, strs)

	got, err := DecodeDeviceTXT(StringsToTXTRecords(strs))
	require.NoError(t, err)
	assert.Equal(t, "31A4F2B", got.Serial)
	assert.Equal(t, "B210", got.Product)
	assert.Equal(t, "roof", got.Name)
	assert.Equal(t, ProtocolVersion, got.Protocol)
}

func TestDecodeDeviceTXTErrors(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
		err  error
	}{
		{"MissingSerial", TXTRecordMap{"product": "B210", "proto": "1"}, ErrMissingRequired},
		{"EmptySerial", TXTRecordMap{"serial": "", "product": "B210", "proto": "1"}, ErrMissingRequired},
		{"MissingProduct", TXTRecordMap{"serial": "1", "proto": "1"}, ErrMissingRequired},
		{"MissingProto", TXTRecordMap{"serial": "1", "product": "B210"}, ErrMissingRequired},
		{"BadProto", TXTRecordMap{"serial": "1", "product": "B210", "proto": "x"}, ErrInvalidTXT},
		{"ZeroProto", TXTRecordMap{"serial": "1", "product": "B210", "proto": "0"}, ErrInvalidTXT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDeviceTXT(tt.txt)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"a=1", "b=x=y", "flag", ""})
	assert.Equal(t, TXTRecordMap{"a": "1", "b": "x=y", "flag": ""}, txt)
}

func TestValidateTXT(t *testing.T) {
	assert.NoError(t, ValidateTXT(TXTRecordMap{"serial": "1"}))
	assert.ErrorIs(t, ValidateTXT(TXTRecordMap{"": "1"}), ErrInvalidTXT)

	long := make([]byte, MaxTXTValueLen)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, ValidateTXT(TXTRecordMap{"name": string(long)}), ErrInvalidTXT)
}

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "B210-31A4F2B", (&DeviceInfo{Serial: "31A4F2B", Product: "B210"}).InstanceName())
	assert.Equal(t, "31A4F2B", (&DeviceInfo{Serial: "31A4F2B"}).InstanceName())

	long := &DeviceInfo{Product: string(make([]byte, 70)), Serial: "1"}
	assert.Len(t, long.InstanceName(), MaxInstanceNameLen)
}

func TestDeviceServiceAddress(t *testing.T) {
	svc := &DeviceService{Host: "b210.local", Port: 49200}
	assert.Equal(t, "b210.local:49200", svc.Address())

	svc.Addresses = []string{"fe80::1", "10.0.0.2"}
	assert.Equal(t, "[fe80::1]:49200", svc.Address())
}

func TestUpdateWithoutAdvertise(t *testing.T) {
	adv := NewMDNSAdvertiser(DefaultAdvertiserConfig())
	defer adv.Stop()

	err := adv.Update(&DeviceInfo{Serial: "1", Product: "B210"})
	assert.ErrorIs(t, err, ErrNotAdvertising)

	_, active := adv.Info()
	assert.False(t, active)
}

func entry(instance string, addrs ...string) *ServiceEntry {
	return &ServiceEntry{
		Instance: instance,
		Host:     instance + ".local",
		Port:     49200,
		Text:     []string{"serial=" + instance, "product=B210", "proto=1"},
		Addrs:    addrs,
	}
}

func TestAggregateMergesInterfaces(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries := make(chan *ServiceEntry)
	removed := make(chan *ServiceEntry)
	out := make(chan *DeviceService, 4)
	done := make(chan struct{})
	go func() {
		aggregate(ctx, entries, removed, out)
		close(done)
	}()

	entries <- entry("a", "10.0.0.1")
	entries <- entry("a", "fe80::1", "10.0.0.1")
	entries <- &ServiceEntry{Instance: "junk", Text: []string{"foo=bar"}}
	entries <- entry("b", "10.0.0.2")
	close(entries)
	<-done

	var got []*DeviceService
	for svc := range out {
		got = append(got, svc)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Serial)
	assert.Equal(t, []string{"10.0.0.1", "fe80::1"}, got[0].Addresses)
	assert.Equal(t, "b", got[1].Serial)
}

func TestAggregateRemoval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	entries := make(chan *ServiceEntry)
	removed := make(chan *ServiceEntry)
	out := make(chan *DeviceService, 4)
	done := make(chan struct{})
	go func() {
		aggregate(ctx, entries, removed, out)
		close(done)
	}()

	entries <- entry("a", "10.0.0.1")
	removed <- entry("a", "10.0.0.1")
	entries <- entry("a", "10.0.0.3")

	var got []*DeviceService
	require.Eventually(t, func() bool { return len(out) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	for svc := range out {
		got = append(got, svc)
	}
	require.Len(t, got, 2, "device re-emitted after all its addresses went away")
	assert.Equal(t, []string{"10.0.0.3"}, got[1].Addresses)
}

func TestAddressHelpers(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, mergeAddresses([]string{"a", "b"}, []string{"b", "c"}))
	assert.Equal(t, []string{"a"}, removeAddresses([]string{"a", "b"}, []string{"b", "x"}))
	assert.Empty(t, removeAddresses([]string{"a"}, []string{"a"}))
}
