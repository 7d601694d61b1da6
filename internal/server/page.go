package server

import (
	"html/template"
	"net/http"
)

var pageTemplate = template.Must(template.New("index").Parse(indexHTML))

type pageData struct {
	Endpoint    string
	Persistence bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pageTemplate.Execute(w, pageData{
		Endpoint:    s.client.Name(),
		Persistence: s.store != nil,
	})
	if err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>StreamChat</title>
<style>
body { font-family: sans-serif; margin: 0; display: flex; height: 100vh; }
#sidebar { width: 260px; border-right: 1px solid #ddd; padding: 12px; overflow-y: auto; }
#main { flex: 1; display: flex; flex-direction: column; padding: 16px; }
#log { flex: 1; overflow-y: auto; }
.msg { margin: 8px 0; padding: 8px 12px; border-radius: 8px; white-space: pre-wrap; }
.msg.user { background: #e8f0fe; }
.msg.assistant { background: #f1f3f4; }
.msg.tool { background: #fef7e0; font-family: monospace; font-size: 0.9em; }
.msg.thinking { color: #888; font-style: italic; }
.msg.error { background: #fce8e6; }
.hist { display: block; width: 100%; text-align: left; margin: 4px 0; padding: 6px;
        border: 1px solid #ddd; border-radius: 6px; background: #fff; cursor: pointer; }
#inputrow { display: flex; gap: 8px; margin-top: 8px; }
#prompt { flex: 1; padding: 8px; }
.banner { padding: 6px 10px; border-radius: 6px; margin-bottom: 8px; }
.banner.ok { background: #e6f4ea; }
.banner.warn { background: #fef7e0; }
.toolcall { color: #555; font-family: monospace; font-size: 0.9em; }
</style>
</head>
<body>
<div id="sidebar">
  <h3>Chat History</h3>
  <button class="hist" onclick="newChat()">New Chat</button>
  <div id="histlist"></div>
</div>
<div id="main">
  <h2>StreamChat</h2>
  <div>Endpoint: <code>{{.Endpoint}}</code></div>
  {{if .Persistence}}<div class="banner ok">Database connected - chat history will be saved</div>
  {{else}}<div class="banner warn">Running without database persistence</div>{{end}}
  <div id="log"></div>
  <div id="inputrow">
    <input id="prompt" placeholder="Ask a question" onkeydown="if(event.key==='Enter')send()">
    <button onclick="send()">Send</button>
  </div>
</div>
<script>
const log = document.getElementById('log');
let turn = null; // current turn container
const slots = {};

function addMsg(cls, text) {
  const div = document.createElement('div');
  div.className = 'msg ' + cls;
  div.textContent = text;
  log.appendChild(div);
  log.scrollTop = log.scrollHeight;
  return div;
}

function renderMessage(el, msg) {
  el.className = 'msg ' + (msg.role || 'assistant');
  el.textContent = msg.content || '';
  if (msg.tool_calls) {
    for (const c of msg.tool_calls) {
      const t = document.createElement('div');
      t.className = 'toolcall';
      t.textContent = c.function.name + '(' + c.function.arguments + ')';
      el.appendChild(t);
    }
  }
}

function resetTurn() {
  if (turn) turn.remove();
  turn = document.createElement('div');
  log.appendChild(turn);
  for (const k in slots) delete slots[k];
}

const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
ws.onmessage = (ev) => {
  const op = JSON.parse(ev.data);
  if (op.op === 'thinking') {
    resetTurn();
    const d = document.createElement('div');
    d.className = 'msg thinking';
    d.textContent = op.text;
    turn.appendChild(d);
  } else if (op.op === 'message') {
    let el = slots[op.slot];
    if (!el) {
      el = document.createElement('div');
      el.className = 'msg assistant';
      slots[op.slot] = el;
      turn.appendChild(el);
    }
    renderMessage(el, op.message);
  } else if (op.op === 'replace_all') {
    resetTurn();
    for (const m of op.messages || []) {
      const el = document.createElement('div');
      renderMessage(el, m);
      turn.appendChild(el);
    }
  } else if (op.op === 'clear') {
    log.innerHTML = '';
    turn = null;
  } else if (op.op === 'error') {
    addMsg('error', op.text);
  }
  log.scrollTop = log.scrollHeight;
};

async function send() {
  const input = document.getElementById('prompt');
  const prompt = input.value.trim();
  if (!prompt) return;
  input.value = '';
  addMsg('user', prompt);
  const resp = await fetch('/api/chat', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({prompt})
  });
  if (!resp.ok) {
    const body = await resp.json().catch(() => ({}));
    addMsg('error', body.error || 'request failed');
  }
  loadHistory();
}

async function loadHistory() {
  const resp = await fetch('/api/history');
  if (!resp.ok) return;
  const entries = await resp.json();
  const list = document.getElementById('histlist');
  list.innerHTML = '';
  for (const e of entries) {
    const b = document.createElement('button');
    b.className = 'hist';
    b.textContent = e.user_message.slice(0, 50);
    b.onclick = () => viewEntry(e.id);
    list.appendChild(b);
  }
}

async function viewEntry(id) {
  const resp = await fetch('/api/history/' + id);
  if (!resp.ok) return;
  const e = await resp.json();
  log.innerHTML = '';
  turn = null;
  addMsg('user', e.user_message);
  addMsg('assistant', e.assistant_response);
}

async function newChat() {
  await fetch('/api/new', {method: 'POST'});
  log.innerHTML = '';
  turn = null;
}

loadHistory();
</script>
</body>
</html>
`
