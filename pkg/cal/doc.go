// Package cal stores and retrieves calibration data.
//
// Calibration data types implement Container and are rebuilt from bytes
// with Make. GainTable is the frequency-dependent gain correction applied
// to radio gain nodes.
package cal
