package renderer

import (
	"testing"

	"github.com/spaghettifunk/ember/engine/renderer/headless"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := metadata.SurfaceFormat{Format: metadata.FormatB8G8R8A8Srgb, ColorSpace: metadata.ColorSpaceSrgbNonlinear}
	rgba := metadata.SurfaceFormat{Format: metadata.FormatR8G8B8A8Unorm, ColorSpace: metadata.ColorSpaceSrgbNonlinear}

	tests := []struct {
		name    string
		formats []metadata.SurfaceFormat
		want    metadata.SurfaceFormat
	}{
		{"preferred listed", []metadata.SurfaceFormat{srgb, PreferredSurfaceFormat}, PreferredSurfaceFormat},
		{"no preference", []metadata.SurfaceFormat{{Format: metadata.FormatUndefined}}, PreferredSurfaceFormat},
		{"fallback to first", []metadata.SurfaceFormat{rgba, srgb}, rgba},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseSurfaceFormat(tt.formats); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}

	mustPanic(t, "empty format list", func() { ChooseSurfaceFormat(nil) })
}

func TestChoosePresentMode(t *testing.T) {
	both := []metadata.PresentMode{metadata.PresentModeFifo, metadata.PresentModeMailbox}
	if got := ChoosePresentMode(both, metadata.PresentModeMailbox); got != metadata.PresentModeMailbox {
		t.Fatalf("got %s, want mailbox", got)
	}
	fifoOnly := []metadata.PresentMode{metadata.PresentModeFifo}
	if got := ChoosePresentMode(fifoOnly, metadata.PresentModeMailbox); got != metadata.PresentModeFifo {
		t.Fatalf("got %s, want fifo fallback", got)
	}
	if got := ChoosePresentMode(nil, metadata.PresentModeImmediate); got != metadata.PresentModeFifo {
		t.Fatalf("got %s, want fifo fallback", got)
	}
}

func TestResolveExtent(t *testing.T) {
	caps := metadata.SurfaceCapabilities{
		CurrentExtent:  metadata.Extent2D{Width: metadata.UndefinedExtent, Height: metadata.UndefinedExtent},
		MinImageExtent: metadata.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: metadata.Extent2D{Width: 2048, Height: 1024},
	}
	tests := []struct {
		desired, want metadata.Extent2D
	}{
		{metadata.Extent2D{Width: 800, Height: 600}, metadata.Extent2D{Width: 800, Height: 600}},
		{metadata.Extent2D{Width: 4000, Height: 600}, metadata.Extent2D{Width: 2048, Height: 600}},
		{metadata.Extent2D{Width: 10, Height: 5000}, metadata.Extent2D{Width: 64, Height: 1024}},
	}
	for _, tt := range tests {
		if got := ResolveExtent(caps, tt.desired); got != tt.want {
			t.Errorf("ResolveExtent(%v) = %v, want %v", tt.desired, got, tt.want)
		}
	}

	caps.CurrentExtent = metadata.Extent2D{Width: 1024, Height: 768}
	if got := ResolveExtent(caps, metadata.Extent2D{Width: 1, Height: 1}); got != caps.CurrentExtent {
		t.Fatalf("fixed surface extent ignored: got %v", got)
	}
}

func TestImageCount(t *testing.T) {
	tests := []struct {
		min, max, want uint32
	}{
		{2, 8, 3},
		{3, 3, 3},
		{2, 0, 3},
		{1, 2, 2},
	}
	for _, tt := range tests {
		caps := metadata.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
		if got := ImageCount(caps); got != tt.want {
			t.Errorf("ImageCount(min=%d, max=%d) = %d, want %d", tt.min, tt.max, got, tt.want)
		}
	}
}

func TestIsStale(t *testing.T) {
	for res, want := range map[metadata.Result]bool{
		metadata.ResultSuccess:         false,
		metadata.ResultSuboptimal:      true,
		metadata.ResultErrorOutOfDate:  true,
		metadata.ResultErrorDeviceLost: false,
		metadata.ResultTimeout:         false,
	} {
		if got := IsStale(res); got != want {
			t.Errorf("IsStale(%s) = %t, want %t", res, got, want)
		}
	}
}

func TestCreateSwapchain(t *testing.T) {
	drv := headless.NewDriver()
	phase, inst, dev := setupDevice(t, drv)

	sc, err := phase.CreateSwapchain(dev, inst.Surface, metadata.Extent2D{Width: 800, Height: 600}, metadata.PresentModeMailbox)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Extent != (metadata.Extent2D{Width: 800, Height: 600}) {
		t.Fatalf("extent %v", sc.Extent)
	}
	if sc.Format != PreferredSurfaceFormat {
		t.Fatalf("format %s", sc.Format)
	}
	if sc.PresentMode != metadata.PresentModeMailbox {
		t.Fatalf("present mode %s", sc.PresentMode)
	}
	if sc.ImageCount != 3 || len(sc.Views) != 3 || drv.Live("ImageView") != 3 {
		t.Fatalf("image count %d, %d views, %d live views", sc.ImageCount, len(sc.Views), drv.Live("ImageView"))
	}

	info := drv.LastInfo("Swapchain").(metadata.SwapchainCreateInfo)
	if len(info.QueueFamilies) != 0 {
		t.Fatalf("shared graphics/present family must use exclusive sharing, got %v", info.QueueFamilies)
	}
	if info.ImageUsage&metadata.ImageUsageColorAttachment == 0 || info.ImageUsage&metadata.ImageUsageTransferDst == 0 {
		t.Fatalf("image usage %#x", info.ImageUsage)
	}
}

func TestCreateSwapchainFifoFallback(t *testing.T) {
	a := headless.DefaultAdapter("fifo")
	a.PresentModes = []metadata.PresentMode{metadata.PresentModeFifo}
	drv := headless.NewDriver(a)
	phase, inst, dev := setupDevice(t, drv)

	sc, err := phase.CreateSwapchain(dev, inst.Surface, metadata.Extent2D{Width: 640, Height: 480}, metadata.PresentModeMailbox)
	if err != nil {
		t.Fatal(err)
	}
	if sc.PresentMode != metadata.PresentModeFifo {
		t.Fatalf("present mode %s, want fifo", sc.PresentMode)
	}
}

func TestCreateSwapchainConcurrentSharing(t *testing.T) {
	a := headless.DefaultAdapter("split")
	a.QueueFamilies = []metadata.QueueFamilyProperties{
		{Flags: metadata.QueueGraphics | metadata.QueueCompute | metadata.QueueTransfer, QueueCount: 1},
		{Flags: metadata.QueueTransfer, QueueCount: 1},
	}
	a.PresentFamilies = []uint32{1}
	drv := headless.NewDriver(a)
	phase, inst, dev := setupDevice(t, drv)

	if _, err := phase.CreateSwapchain(dev, inst.Surface, metadata.Extent2D{Width: 640, Height: 480}, metadata.PresentModeFifo); err != nil {
		t.Fatal(err)
	}
	info := drv.LastInfo("Swapchain").(metadata.SwapchainCreateInfo)
	if len(info.QueueFamilies) != 2 {
		t.Fatalf("split graphics/present families must share concurrently, got %v", info.QueueFamilies)
	}
}

func TestCreateSwapchainFailureUnwindsViews(t *testing.T) {
	drv := headless.NewDriver()
	phase, inst, dev := setupDevice(t, drv)
	mark := phase.Registry.Mark()

	drv.Fail["ImageView"] = metadata.ResultErrorOutOfHostMemory
	if _, err := phase.CreateSwapchain(dev, inst.Surface, metadata.Extent2D{Width: 640, Height: 480}, metadata.PresentModeFifo); err == nil {
		t.Fatal("expected error")
	}
	if phase.Registry.Mark() != mark || drv.Live("Swapchain") != 0 || drv.Live("ImageView") != 0 {
		t.Fatalf("failed swapchain left %d swapchains and %d views", drv.Live("Swapchain"), drv.Live("ImageView"))
	}
}
