package http

import (
	"net/http"
	"zeptrion-bridge/internal/domain/model"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleGetConfig(c *gin.Context) {
	cfg, err := s.config.GetConfig(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// handleUpdateConfig saves the configuration and rediscovers the hub when a host is set.
// A hub that cannot be reached is reported but the configuration stays saved.
func (s *Server) handleUpdateConfig(c *gin.Context) {
	var cfg model.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := s.config.UpdateConfig(c.Request.Context(), &cfg); err != nil {
		s.logger.Error().Err(err).Msg("Failed to apply configuration")
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) handleAdmin(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(adminPage))
}

const adminPage = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>zeptrion Bridge Admin</title>
    <style>
        body { font-family: sans-serif; max-width: 1000px; margin: 40px auto; padding: 20px; line-height: 1.6; background-color: #f4f4f9; }
        section { padding: 20px; background: white; border: 1px solid #ccc; border-radius: 4px; margin-bottom: 20px; }
        label { display: block; margin-bottom: 5px; font-weight: bold; }
        input[type="text"], input[type="number"] { width: 100%; padding: 8px; margin-bottom: 10px; box-sizing: border-box; border: 1px solid #ccc; border-radius: 4px; }
        button { padding: 6px 12px; background: #007bff; color: white; border: none; cursor: pointer; border-radius: 4px; margin-right: 4px; }
        button:hover { background: #0056b3; }
        table { width: 100%; border-collapse: collapse; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f8f9fa; }
        #msg { color: #c82333; }
    </style>
</head>
<body>
    <h1>zeptrion Bridge</h1>
    <section>
        <h2>Hub</h2>
        <div id="hub">not set up</div>
        <label for="host">Hub host</label>
        <input type="text" id="host" placeholder="zapp-12345678.local">
        <label for="step">Step duration (ms)</label>
        <input type="number" id="step" min="100" max="10000">
        <button onclick="save()">Save</button>
        <span id="msg"></span>
    </section>
    <section>
        <h2>Channels</h2>
        <table>
            <thead><tr><th>#</th><th>Name</th><th>Category</th><th>State</th><th></th></tr></thead>
            <tbody id="channels"></tbody>
        </table>
    </section>
    <script>
        let config = {};
        const buttons = {
            blind: ['open', 'close', 'stop', 'step_up', 'step_down'],
            markise: ['open', 'close', 'stop', 'step_up', 'step_down'],
            dimmer: ['on', 'off'],
            on_off_light: ['on', 'off']
        };

        async function loadData() {
            config = await (await fetch('/admin/config')).json();
            document.getElementById('host').value = config.hub_host || '';
            document.getElementById('step').value = config.step_duration_ms || 500;

            const hub = await fetch('/bridge/v1/hub');
            if (hub.ok) {
                const id = await hub.json();
                document.getElementById('hub').textContent = id.serial_number + ' (' + id.system_type + ', firmware ' + id.firmware_version + ')';
            }
            const channels = await (await fetch('/bridge/v1/channels')).json();
            const rows = [];
            for (const ch of channels) {
                const status = await (await fetch('/bridge/v1/channels/' + ch.id + '/status')).json();
                const state = ch.category === 'blind' || ch.category === 'markise' ? status.phase : status.power;
                const actions = (buttons[ch.category] || []).map(c =>
                    '<button onclick="send(' + ch.id + ',\'' + c + '\')">' + c + '</button>').join('');
                rows.push('<tr><td>' + ch.id + '</td><td>' + ch.label + '</td><td>' + ch.category + '</td><td>' + state + '</td><td>' + actions + '</td></tr>');
            }
            document.getElementById('channels').innerHTML = rows.join('');
        }

        async function send(id, command) {
            const res = await fetch('/bridge/v1/channels/' + id + '/commands', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ command: command })
            });
            if (!res.ok) {
                document.getElementById('msg').textContent = (await res.json()).message;
            }
            loadData();
        }

        async function save() {
            config.hub_host = document.getElementById('host').value;
            config.step_duration_ms = parseInt(document.getElementById('step').value, 10);
            const res = await fetch('/admin/config', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify(config)
            });
            document.getElementById('msg').textContent = res.ok ? '' : (await res.json()).message;
            loadData();
        }

        loadData();
    </script>
</body>
</html>
`
