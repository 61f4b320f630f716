package metadata

import "fmt"

// Handle is an opaque driver object reference. Drivers hand out non-zero values that
// increase monotonically over the lifetime of the driver.
type Handle uint64

const NullHandle Handle = 0

func (h Handle) IsNull() bool {
	return h == NullHandle
}

func (h Handle) String() string {
	if h.IsNull() {
		return "null"
	}
	return fmt.Sprintf("0x%x", uint64(h))
}

// InfiniteTimeout disables the timeout of fence waits and image acquisition.
const InfiniteTimeout uint64 = ^uint64(0)
