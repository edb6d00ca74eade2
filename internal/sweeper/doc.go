// Package sweeper runs the periodic crash-recovery pass: expired pending
// leases are reclaimed so their items get redelivered, and items belonging to
// acknowledged leases are garbage-collected to bound storage growth.
package sweeper
