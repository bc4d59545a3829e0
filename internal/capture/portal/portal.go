package portal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/hotshot/internal/capture"
	"github.com/bryanchriswhite/hotshot/internal/logger"
	"github.com/godbus/dbus/v5"
)

// Portal D-Bus constants
const (
	portalService   = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	screenshotIface = "org.freedesktop.portal.Screenshot"
	requestIface    = "org.freedesktop.portal.Request"
)

// Response codes of org.freedesktop.portal.Request.Response
const (
	responseSuccess   = 0
	responseCancelled = 1
)

// DefaultTimeout bounds how long a request waits for the portal. The
// interactive dialog keeps the request open while the user chooses.
const DefaultTimeout = 2 * time.Minute

// requester asks the portal for one screenshot and returns the URI of
// the image file it wrote.
type requester interface {
	Screenshot(ctx context.Context, interactive bool) (string, error)
}

var tokenCounter atomic.Uint64

// dbusRequester talks to xdg-desktop-portal over the session bus. Each
// request opens its own bus connection and closes it when done.
type dbusRequester struct {
	timeout time.Duration
}

func (r *dbusRequester) Screenshot(ctx context.Context, interactive bool) (string, error) {
	log := logger.WithComponent("portal")

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return "", &capture.ConnectionError{Backend: capture.Wayland, Err: err}
	}
	defer conn.Close()

	token := fmt.Sprintf("hotshot%d_%d", os.Getpid(), tokenCounter.Add(1))
	expected := requestPath(conn.Names()[0], token)

	// Subscribe before calling so a fast response cannot be missed.
	err = conn.AddMatchSignal(
		dbus.WithMatchInterface(requestIface),
		dbus.WithMatchMember("Response"),
		dbus.WithMatchObjectPath(expected),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to add match rule")
	}

	responses := make(chan *dbus.Signal, 10)
	conn.Signal(responses)
	defer conn.RemoveSignal(responses)

	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
		"interactive":  dbus.MakeVariant(interactive),
		"modal":        dbus.MakeVariant(interactive),
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var handle dbus.ObjectPath
	obj := conn.Object(portalService, portalPath)
	if err := obj.CallWithContext(ctx, screenshotIface+".Screenshot", 0, "", options).Store(&handle); err != nil {
		return "", request("screenshot", err)
	}

	log.Debug().
		Str("request_path", string(handle)).
		Bool("interactive", interactive).
		Msg("Waiting for Screenshot response")

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", request("screenshot", fmt.Errorf("timeout after %s waiting for portal response", r.timeout))
			}
			return "", ctx.Err()

		case sig := <-responses:
			if sig.Name != requestIface+".Response" || (sig.Path != handle && sig.Path != expected) {
				continue
			}
			return parseResponse(sig.Body)
		}
	}
}

// requestPath predicts the Request object path the portal will create for
// a token, so the response can be matched before the call returns.
func requestPath(sender, token string) dbus.ObjectPath {
	sender = strings.ReplaceAll(strings.TrimPrefix(sender, ":"), ".", "_")
	return dbus.ObjectPath(portalPath + "/request/" + sender + "/" + token)
}

// parseResponse extracts the image URI from a Response signal body.
func parseResponse(body []interface{}) (string, error) {
	if len(body) < 2 {
		return "", request("screenshot", errors.New("invalid response"))
	}

	code, ok := body[0].(uint32)
	if !ok {
		return "", request("screenshot", fmt.Errorf("unexpected response code type %T", body[0]))
	}
	switch code {
	case responseSuccess:
	case responseCancelled:
		return "", capture.ErrSelectionCancelled
	default:
		return "", request("screenshot", fmt.Errorf("portal request denied (code %d)", code))
	}

	results, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return "", request("screenshot", fmt.Errorf("unexpected results type %T", body[1]))
	}
	v, ok := results["uri"]
	if !ok {
		return "", request("screenshot", errors.New("no uri in response"))
	}
	uri, ok := v.Value().(string)
	if !ok {
		return "", request("screenshot", fmt.Errorf("unexpected uri type %T", v.Value()))
	}
	return uri, nil
}

// uriPath turns a file:// URI into a local path. Anything else is
// treated as a path already.
func uriPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return strings.TrimPrefix(uri, "file://")
	}
	return u.Path
}

func request(op string, err error) error {
	return &capture.RequestError{Backend: capture.Wayland, Op: op, Err: err}
}
