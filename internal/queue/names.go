package queue

import "fmt"

// Queue names become part of physical table names, so they are restricted to
// a conservative identifier alphabet rather than quoted into SQL.
const maxQueueNameLen = 48

// ValidateName reports whether name can back a queue's tables.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrBadQueueName)
	}
	if len(name) > maxQueueNameLen {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrBadQueueName, name, maxQueueNameLen)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return fmt.Errorf("%w: %q must start with a letter", ErrBadQueueName, name)
			}
		case c == '_':
			if i == 0 {
				return fmt.Errorf("%w: %q must start with a letter", ErrBadQueueName, name)
			}
		default:
			return fmt.Errorf("%w: %q may contain only lowercase letters, digits, and underscores", ErrBadQueueName, name)
		}
	}
	return nil
}

// itemTable returns the physical item table name for a queue.
func itemTable(name string) string {
	return "queue_" + name
}

// leaseTable returns the physical lease table name for a queue.
func leaseTable(name string) string {
	return "queue_" + name + "_leases"
}
