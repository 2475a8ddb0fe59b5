package middleware

import (
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"
)

// XRayMiddleware opens a segment per request and records method, URL and
// final status on it.
func XRayMiddleware(segmentName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, seg := xray.BeginSegment(c.Request().Context(), segmentName)
			req := c.Request().Clone(ctx)
			c.SetRequest(req)
			if seg != nil {
				seg.Lock()
				seg.GetHTTP().GetRequest().Method = req.Method
				seg.GetHTTP().GetRequest().URL = req.URL.String()
				seg.Unlock()
			}
			err := next(c)
			if seg != nil {
				seg.Lock()
				seg.GetHTTP().GetResponse().Status = c.Response().Status
				seg.Unlock()
				seg.Close(err)
			}
			return err
		}
	}
}
