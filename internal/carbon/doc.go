// Package carbon computes and records CO2 savings from guided parking.
//
// The model compares the distance a driver actually travelled to a
// baseline of five minutes circling at average lot speed. The distance
// not driven converts to grams of CO2 at a fixed per-metre rate, and CO2
// converts to money at a fixed per-kilogram rate. Records accumulate per
// user and roll up per lot and day for the operator dashboard.
package carbon
