package slack

import "strings"

// LoginSuccessHTML is the page shown in the user's browser after a
// successful redirect. The CLI has already received the authorization code
// by the time this renders, so the page only needs to tell the user to
// return to the terminal.
const LoginSuccessHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Login Successful - slackline</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: linear-gradient(135deg, #611f69 0%, #36c5f0 100%);
        }
        .container {
            text-align: center;
            background: white;
            padding: 2.5rem;
            border-radius: 12px;
            box-shadow: 0 10px 25px rgba(0,0,0,0.1);
            max-width: 480px;
        }
        .icon { font-size: 3rem; }
        h1 { color: #1d1c1d; font-size: 1.4rem; }
        p { color: #616061; }
    </style>
</head>
<body>
    <div class="container">
        <div class="icon">&#9989;</div>
        <h1>Authentication successful</h1>
        <p>slackline has received the authorization code. You can close this tab and return to your terminal.</p>
    </div>
</body>
</html>`

// LoginFailureHTML is the page shown when the redirect cannot complete the
// login. The {{REASON}} placeholder is replaced with a short human-readable
// description; it never contains token material.
const LoginFailureHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Login Failed - slackline</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: linear-gradient(135deg, #611f69 0%, #e01e5a 100%);
        }
        .container {
            text-align: center;
            background: white;
            padding: 2.5rem;
            border-radius: 12px;
            box-shadow: 0 10px 25px rgba(0,0,0,0.1);
            max-width: 480px;
        }
        .icon { font-size: 3rem; }
        h1 { color: #1d1c1d; font-size: 1.4rem; }
        p { color: #616061; }
    </style>
</head>
<body>
    <div class="container">
        <div class="icon">&#10060;</div>
        <h1>Authentication failed</h1>
        <p>{{REASON}}</p>
        <p>Close this tab and check your terminal for details.</p>
    </div>
</body>
</html>`

// renderFailurePage substitutes the failure reason into the failure template.
func renderFailurePage(reason string) string {
	return strings.Replace(LoginFailureHTML, "{{REASON}}", reason, 1)
}
