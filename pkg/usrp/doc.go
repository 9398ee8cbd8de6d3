// Package usrp builds a simulated software-defined radio into a property
// tree.
//
// Build lays out one motherboard with its EEPROM, RX and TX DSP chains,
// RFNoC radio blocks and CHDR transport settings, and registers each part
// as a component. The motherboard tick rate is coupled to the DSPs: a tick
// rate write re-coerces every DSP rate and frequency in the same update,
// and a rejected DSP value rolls the tick rate back.
//
// Simulator feeds sensor readings asynchronously, and Seed applies extra
// values, nodes and aliases from a YAML file.
package usrp
