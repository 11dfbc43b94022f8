/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
)

func serveHomePage(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		page := `<!DOCTYPE html><html lang="en"><head><title>Planchette</title></head>` +
			`<body><a href="` + cfg.prefix + `/board">Start a séance</a></body></html>`

		_, _ = w.Write([]byte(page))
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: Amazonbot
Disallow: /

User-agent: Applebot-Extended
Disallow: /

User-agent: Bytespider
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: Google-Extended
Disallow: /

User-agent: GPTBot
Disallow: /

User-agent: meta-externalagent
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}

// Single-page board client
const boardHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Planchette</title>
<style>
  body { font-family: Georgia, serif; margin: 1rem; background: #1b1410; color: #e8ddc8; }
  h1 { margin: 0 0 0.25rem; font-weight: normal; letter-spacing: 0.2em; }
  #status, #players, #transcript { margin: 0.5rem 0; font-size: 0.9rem; }
  #board { position: relative; height: 420px; border: 1px solid #5b4a33; border-radius: 8px;
           background: #2a2018; user-select: none; touch-action: none; overflow: hidden; }
  .letter { position: absolute; width: 2rem; text-align: center; font-size: 1.2rem; cursor: pointer; }
  #planchette { position: absolute; width: 56px; height: 72px; left: 200px; top: 100px;
                background: #c9b089; clip-path: polygon(50% 0, 100% 75%, 50% 100%, 0 75%);
                cursor: grab; opacity: 0.85; }
  #transcript { min-height: 1.5rem; font-size: 1.3rem; letter-spacing: 0.3em; }
  button { background: #3a2d20; color: #e8ddc8; border: 1px solid #5b4a33; border-radius: 4px;
           padding: 0.3rem 0.8rem; cursor: pointer; margin-right: 0.5rem; }
</style>
</head>
<body>
<h1>SÉANCE</h1>
<div id="status">Connecting…</div>
<div id="players"></div>
<div>
  <button id="acquire">Take the planchette</button>
  <button id="release">Let go</button>
  <button id="clear">Clear</button>
</div>
<div id="board"><div id="planchette"></div></div>
<div id="transcript"></div>

<script>
(function() {
  const statusEl = document.getElementById('status');
  const playersEl = document.getElementById('players');
  const transcriptEl = document.getElementById('transcript');
  const board = document.getElementById('board');
  const planchette = document.getElementById('planchette');

  const room = decodeURIComponent(location.pathname.replace(/\/$/, '').split('/').pop()) || 'default-room';

  // Lay the alphabet out in two arcs, plus digits below.
  const rows = ['ABCDEFGHIJKLM', 'NOPQRSTUVWXYZ', '1234567890'];
  rows.forEach(function(row, r) {
    for (let i = 0; i < row.length; i++) {
      const el = document.createElement('div');
      el.className = 'letter';
      el.textContent = row[i];
      el.style.left = (24 + i * 44) + 'px';
      el.style.top = (60 + r * 110) + 'px';
      el.onclick = function() {
        if (holding) ws.send(JSON.stringify({ type: 'type', room, text: row[i] }));
      };
      board.appendChild(el);
    }
  });

  let myId = '';
  let holding = false;
  let dragging = false;

  const proto = (location.protocol === 'https:') ? 'wss://' : 'ws://';
  const ws = new WebSocket(proto + location.host + location.pathname.replace(/\/$/, '') + '/ws');

  ws.onopen = function() {
    statusEl.textContent = 'Connected to ' + room + '.';
    const name = prompt('Your name:') || '';
    ws.send(JSON.stringify({ type: 'join', room, name }));
  };

  ws.onmessage = function(event) {
    let msg;
    try { msg = JSON.parse(event.data); } catch (e) { return; }

    switch (msg.type) {
    case 'session':
      myId = msg.id;
      break;
    case 'presence':
      playersEl.textContent = 'Present: ' + msg.players.map(function(p) { return p.name; }).join(', ');
      break;
    case 'pointerLocked':
      holding = (msg.owner === myId);
      statusEl.textContent = holding ? 'You hold the planchette.' : 'Another hand holds the planchette.';
      planchette.style.cursor = holding ? 'grabbing' : 'not-allowed';
      break;
    case 'pointerLockFailed':
      statusEl.textContent = 'The planchette resists you.';
      break;
    case 'pointerReleased':
      holding = false;
      dragging = false;
      statusEl.textContent = 'The planchette is free.';
      planchette.style.cursor = 'grab';
      break;
    case 'pointerMove':
      if (msg.id === myId) break; // own echo, already rendered locally
      planchette.style.left = msg.x + 'px';
      planchette.style.top = msg.y + 'px';
      break;
    case 'type':
      if (msg.text === '') {
        transcriptEl.textContent = '';
      } else {
        transcriptEl.textContent += msg.text;
      }
      break;
    }
  };

  ws.onclose = function() { statusEl.textContent = 'Disconnected.'; };

  document.getElementById('acquire').onclick = function() {
    ws.send(JSON.stringify({ type: 'acquirePointer', room }));
  };
  document.getElementById('release').onclick = function() {
    ws.send(JSON.stringify({ type: 'releasePointer', room }));
  };
  document.getElementById('clear').onclick = function() {
    if (holding) ws.send(JSON.stringify({ type: 'type', room, text: '' }));
  };

  planchette.addEventListener('pointerdown', function(ev) {
    if (!holding) {
      ws.send(JSON.stringify({ type: 'acquirePointer', room }));
      return;
    }
    dragging = true;
    planchette.setPointerCapture(ev.pointerId);
  });

  planchette.addEventListener('pointermove', function(ev) {
    if (!dragging || !holding) return;
    const rect = board.getBoundingClientRect();
    const x = ev.clientX - rect.left - 28;
    const y = ev.clientY - rect.top - 36;
    planchette.style.left = x + 'px';
    planchette.style.top = y + 'px';
    ws.send(JSON.stringify({ type: 'pointerMove', room, x, y }));
  });

  planchette.addEventListener('pointerup', function() { dragging = false; });
})();
</script>
</body>
</html>
`

func serveBoardPage(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte(boardHTML))
	}
}
