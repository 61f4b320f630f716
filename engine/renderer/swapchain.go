package renderer

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	emath "github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// PreferredSurfaceFormat is picked whenever the surface offers it.
var PreferredSurfaceFormat = metadata.SurfaceFormat{
	Format:     metadata.FormatB8G8R8A8Unorm,
	ColorSpace: metadata.ColorSpaceSrgbNonlinear,
}

// ChooseSurfaceFormat returns the preferred pair when listed, the preferred pair when the
// surface reports a single UNDEFINED format (no preference), and formats[0] otherwise.
func ChooseSurfaceFormat(formats []metadata.SurfaceFormat) metadata.SurfaceFormat {
	if len(formats) == 0 {
		panic(errors.AssertionFailedf("surface reported no formats"))
	}
	if len(formats) == 1 && formats[0].Format == metadata.FormatUndefined {
		return PreferredSurfaceFormat
	}
	for _, f := range formats {
		if f == PreferredSurfaceFormat {
			return f
		}
	}
	return formats[0]
}

// ChoosePresentMode returns preferred when supported, FIFO otherwise. FIFO is always available.
func ChoosePresentMode(modes []metadata.PresentMode, preferred metadata.PresentMode) metadata.PresentMode {
	for _, m := range modes {
		if m == preferred {
			return m
		}
	}
	return metadata.PresentModeFifo
}

// ResolveExtent uses the fixed surface extent when there is one, and otherwise clamps the
// desired extent into the supported range on each axis independently.
func ResolveExtent(caps metadata.SurfaceCapabilities, desired metadata.Extent2D) metadata.Extent2D {
	if caps.CurrentExtent.Width != metadata.UndefinedExtent {
		return caps.CurrentExtent
	}
	return metadata.Extent2D{
		Width:  emath.Clamp(desired.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: emath.Clamp(desired.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ImageCount asks for one image more than the minimum. A zero maximum means no upper bound.
func ImageCount(caps metadata.SurfaceCapabilities) uint32 {
	return emath.MinNonZero(caps.MinImageCount+1, caps.MaxImageCount)
}

// IsStale reports whether a result from acquire or present asks for a rebuild.
func IsStale(result metadata.Result) bool {
	return result.IsStale()
}

func imageUsage(caps metadata.SurfaceCapabilities) metadata.ImageUsageFlags {
	usage := metadata.ImageUsageColorAttachment
	if caps.SupportedUsage&metadata.ImageUsageTransferSrc != 0 {
		usage |= metadata.ImageUsageTransferSrc
	}
	if caps.SupportedUsage&metadata.ImageUsageTransferDst != 0 {
		usage |= metadata.ImageUsageTransferDst
	}
	return usage
}

// CreateSwapchain builds a swapchain and one view per image. Both are pushed on the
// registry; destroying the state is unwinding past them.
func (p Phase) CreateSwapchain(dev DeviceState, surface metadata.Handle, desired metadata.Extent2D, preferred metadata.PresentMode) (state SwapchainState, err error) {
	defer p.Registry.Scope(&err)()

	gpu := dev.Physical.Handle
	caps, err := p.Driver.GetSurfaceCapabilities(gpu, surface)
	if err != nil {
		return state, errors.Wrap(err, "query surface capabilities")
	}
	formats, err := p.Driver.GetSurfaceFormats(gpu, surface)
	if err != nil {
		return state, errors.Wrap(err, "query surface formats")
	}
	modes, err := p.Driver.GetSurfacePresentModes(gpu, surface)
	if err != nil {
		return state, errors.Wrap(err, "query present modes")
	}

	state.Format = ChooseSurfaceFormat(formats)
	state.PresentMode = ChoosePresentMode(modes, preferred)
	state.Extent = ResolveExtent(caps, desired)
	imageCount := ImageCount(caps)

	info := &metadata.SwapchainCreateInfo{
		SType:         metadata.StructureTypeSwapchainCreateInfo,
		Surface:       surface,
		MinImageCount: imageCount,
		Format:        state.Format,
		Extent:        state.Extent,
		ImageUsage:    imageUsage(caps),
		PreTransform:  caps.CurrentTransform,
		PresentMode:   state.PresentMode,
		Clipped:       true,
	}
	if dev.Indices.Graphics.Index != dev.Indices.Present.Index {
		info.QueueFamilies = []uint32{dev.Indices.Graphics.Index, dev.Indices.Present.Index}
	}

	swapchain, err := p.Driver.CreateSwapchain(dev.Device, info)
	if err != nil {
		return state, errors.Wrap(err, "create swapchain")
	}
	p.Registry.Push(KindSwapchain, fmt.Sprintf("%dx%d", state.Extent.Width, state.Extent.Height),
		func() { p.Driver.DestroySwapchain(dev.Device, swapchain) })
	state.Swapchain = swapchain

	images, err := p.Driver.GetSwapchainImages(dev.Device, swapchain)
	if err != nil {
		return state, errors.Wrap(err, "get swapchain images")
	}
	state.Images = images
	state.ImageCount = uint32(len(images))

	state.Views = make([]metadata.Handle, len(images))
	for i, image := range images {
		view, err := p.Driver.CreateImageView(dev.Device, &metadata.ImageViewCreateInfo{
			SType:  metadata.StructureTypeImageViewCreateInfo,
			Image:  image,
			Format: state.Format.Format,
		})
		if err != nil {
			return state, errors.Wrapf(err, "create image view %d", i)
		}
		p.Registry.Push(KindImageView, fmt.Sprintf("swapchain image %d", i),
			func() { p.Driver.DestroyImageView(dev.Device, view) })
		state.Views[i] = view
	}

	core.LogInfo("Swapchain created: %d images, %dx%d, %s, present mode %s.",
		state.ImageCount, state.Extent.Width, state.Extent.Height, state.Format, state.PresentMode)
	return state, nil
}
