// Package defclean finds defconfig symbols that are no longer referenced by
// the kernel source tree they ship with.
package defclean
