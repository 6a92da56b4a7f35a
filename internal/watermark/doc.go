// Package watermark prepares watermark images for the overlay filter.
//
// Local images wider than the configured maximum (WATERMARK_MAX_WIDTH) are
// resized with Lanczos resampling, keeping their aspect ratio, and saved as
// PNG in the work directory. JPEG, PNG, GIF, BMP, TIFF and WebP inputs are
// supported. Remote watermarks are handed to the engine unchanged.
package watermark
