// Package occupancy records and aggregates historical spot usage.
//
// One event is appended every time a spot transitions into OCCUPIED. The
// aggregation queries bucket events by hour, day or month; buckets with no
// events are reported with a zero count so charts render a full axis.
package occupancy
