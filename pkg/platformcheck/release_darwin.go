package platformcheck

import "golang.org/x/sys/unix"

func release() (string, error) {
	return unix.Sysctl("kern.osproductversion")
}
