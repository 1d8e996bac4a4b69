package dashboard

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Whale Swarm Monitor</title>
<style>
  :root { --bg: #0d1117; --panel: #161b22; --border: #30363d; --fg: #c9d1d9; --accent: #58a6ff; --alert: #f85149; }
  body { margin: 0; background: var(--bg); color: var(--fg); font-family: ui-monospace, monospace; }
  header { padding: 16px 24px; border-bottom: 1px solid var(--border); }
  h1 { margin: 0; font-size: 18px; }
  #meta { color: #8b949e; font-size: 12px; margin-top: 4px; }
  main { display: grid; grid-template-columns: 1fr 1fr; gap: 16px; padding: 16px 24px; }
  section { background: var(--panel); border: 1px solid var(--border); border-radius: 6px; padding: 12px; }
  h2 { font-size: 14px; margin: 0 0 8px; }
  .trade, .swarm { border-bottom: 1px solid var(--border); padding: 6px 0; font-size: 12px; }
  .swarm { border-left: 3px solid var(--alert); padding-left: 8px; }
  .muted { color: #8b949e; }
  a { color: var(--accent); }
  .warn { color: #d29922; font-size: 11px; }
</style>
</head>
<body>
<header>
  <h1>&#129416; Whale Swarm Monitor</h1>
  <div id="meta">connecting&hellip;</div>
</header>
<main>
  <section>
    <h2>Latest Trades</h2>
    <div id="trades" class="muted">no trades yet</div>
  </section>
  <section>
    <h2>Swarm Alerts</h2>
    <div id="swarms" class="muted">watching for swarms&hellip;</div>
    <h2 style="margin-top:16px">Alert History</h2>
    <div id="alerts" class="muted">none</div>
    <div id="warnings"></div>
  </section>
</main>
<script>
function usd(v) { return '$' + Number(v).toLocaleString(undefined, {maximumFractionDigits: 2}); }
function short(w) { return w.slice(0, 8) + '…'; }
function render(s) {
  document.getElementById('meta').textContent =
    'wallets: ' + s.wallet_count + ' | cycles: ' + s.cycle_count +
    ' | updated: ' + new Date(s.updated_at).toLocaleTimeString();
  var trades = (s.trades || []).map(function (t) {
    return '<div class="trade"><b>' + new Date(t.observed_at).toLocaleTimeString() + '</b> ' +
      short(t.wallet) + ' &rarr; ' + t.market_title + ' (' + t.outcome + ')' +
      '<div class="muted">whale: ' + usd(t.whale_amount) + ' | copy: ' + usd(t.copy_amount) +
      ' | <a href="' + t.action_link + '" target="_blank" rel="noopener">copy</a></div></div>';
  }).join('');
  document.getElementById('trades').innerHTML = trades || 'no trades yet';
  var swarms = (s.swarms || []).map(function (g) {
    return '<div class="swarm"><b>' + g.wallets + ' whales</b> on ' + g.market_title +
      ' &mdash; <b>' + g.outcome + '</b>' +
      '<div class="muted">volume: ' + usd(g.total_volume) + ' | your copy: ' + usd(g.copy_amount) +
      ' | <a href="' + g.action_link + '" target="_blank" rel="noopener">copy swarm</a></div></div>';
  }).join('');
  document.getElementById('swarms').innerHTML = swarms || 'watching for swarms…';
  var alerts = (s.alerts || []).map(function (a) {
    return '<div class="trade">' + new Date(a.sent_at).toLocaleTimeString() + ' ' + a.summary + '</div>';
  }).join('');
  document.getElementById('alerts').innerHTML = alerts || 'none';
  document.getElementById('warnings').innerHTML =
    (s.warnings || []).map(function (w) { return '<div class="warn">' + w + '</div>'; }).join('');
}
function connect() {
  var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
  var ws = new WebSocket(proto + location.host + '/ws');
  ws.onmessage = function (ev) { render(JSON.parse(ev.data)); };
  ws.onclose = function () { setTimeout(connect, 2000); };
}
fetch('/api/snapshot').then(function (r) { return r.json(); }).then(render);
connect();
</script>
</body>
</html>`
