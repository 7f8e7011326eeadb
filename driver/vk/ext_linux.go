// Copyright 2022 Gustavo C. Viegas. All rights reserved.

//go:build !android

package vk

// #include <proc.h>
import "C"

// setInstanceExts sets the extension fields of the info structure and
// updates the driver's exts array accordingly. No windowing toolkit
// is part of this driver's surface (presentation to a window is
// handled by an external collaborator, not this module), so only the
// direct-to-display path is attempted.
func (d *Driver) setInstanceExts(info *C.VkInstanceCreateInfo) func() {
	if from, err := instanceExts(); err == nil {
		exts := []string{extSurfaceS, extDisplayS}
		if names, free, err := selectExts(exts, from); err == nil {
			d.exts[extSurface] = true
			d.exts[extDisplay] = true
			info.enabledExtensionCount = C.uint32_t(len(exts))
			info.ppEnabledExtensionNames = names
			return free
		}
	}
	info.enabledExtensionCount = 0
	info.ppEnabledExtensionNames = nil
	return func() {}
}

func (d *Driver) setDeviceExts(info *C.VkDeviceCreateInfo) func() {
	if d.exts[extSurface] {
		if from, err := deviceExts(d.pdev); err == nil {
			exts := []string{extSwapchainS}
			inds := []int{extSwapchain}
			if d.exts[extDisplay] {
				exts = append(exts, extDisplaySwapchainS)
				inds = append(inds, extDisplaySwapchain)
			}
			for len(exts) > 0 {
				if names, free, err := selectExts(exts, from); err == nil {
					for i := range exts {
						d.exts[inds[i]] = true
					}
					info.enabledExtensionCount = C.uint32_t(len(exts))
					info.ppEnabledExtensionNames = names
					return free
				}
				exts = exts[:len(exts)-1]
			}
		}
	}
	info.enabledExtensionCount = 0
	info.ppEnabledExtensionNames = nil
	return func() {}
}
